package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	canplat "github.com/mlajoie/canplat"
	"github.com/stretchr/testify/assert"
)

func TestFileSinkRoundtrip(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	assert.Nil(t, err)

	written := []Entry{
		{Name: "raw", Kind: KindRaw, Timestamp: 1.5, Raw: []byte{0xDE, 0xAD}},
		{Name: "enabled", Kind: KindBoolean, Timestamp: 2.5, Booleans: []bool{true}},
		{Name: "count", Units: "ticks", Kind: KindInteger, Timestamp: 3.5, Integers: []int64{-42}},
		{Name: "temp", Units: "C", Kind: KindFloat, Timestamp: 4.5, Floats: []float32{36.6}},
		{Name: "velocity", Units: "rps", Kind: KindDouble, Timestamp: 5.5, Doubles: []float64{123.456}},
		{Name: "mode", Kind: KindString, Timestamp: 6.5, Str: "brake"},
		{Name: "flags", Kind: KindBooleanArray, Timestamp: 7.5, Booleans: []bool{true, false, true}},
		{Name: "pose", Units: "m", Kind: KindDoubleArray, Timestamp: 8.5, Doubles: []float64{1, 2, 3}},
	}
	assert.Nil(t, sink.Write(written))
	assert.Nil(t, sink.Close())

	read, err := ReadAll(sink.Name())
	assert.Nil(t, err)
	assert.Equal(t, written, read)
}

func TestFileSinkCrcDetection(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	assert.Nil(t, err)
	assert.Nil(t, sink.Write([]Entry{{Name: "velocity", Kind: KindDouble, Doubles: []float64{1}}}))
	assert.Nil(t, sink.Close())

	// Flip one bit inside the record body
	raw, err := os.ReadFile(sink.Name())
	assert.Nil(t, err)
	raw[len(raw)-4] ^= 0x01
	assert.Nil(t, os.WriteFile(sink.Name(), raw, 0644))

	_, err = ReadAll(sink.Name())
	assert.Equal(t, canplat.ErrCRC, err)
}

func TestReadAllRejectsGarbage(t *testing.T) {
	name := filepath.Join(t.TempDir(), "not_a_log.cplog")
	assert.Nil(t, os.WriteFile(name, []byte("garbage"), 0644))
	_, err := ReadAll(name)
	assert.NotNil(t, err)
}

// End to end through the logger with its default file sink
func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger()
	assert.Equal(t, canplat.StatusOK, logger.SetPath(dir))
	assert.Equal(t, canplat.StatusOK, logger.Start())
	assert.Equal(t, canplat.StatusOK, logger.WriteDouble("velocity", 99.5, "rps"))
	assert.Equal(t, canplat.StatusOK, logger.WriteString("mode", "coast", ""))
	assert.Equal(t, canplat.StatusOK, logger.Stop())

	files, err := filepath.Glob(filepath.Join(dir, "canplat_*.cplog"))
	assert.Nil(t, err)
	assert.Len(t, files, 1)
	entries, err := ReadAll(files[0])
	assert.Nil(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "velocity", entries[0].Name)
	assert.Equal(t, 99.5, entries[0].Doubles[0])
	assert.Equal(t, "coast", entries[1].Str)
}
