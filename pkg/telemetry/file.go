package telemetry

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	canplat "github.com/mlajoie/canplat"
	"github.com/mlajoie/canplat/internal/crc"
	log "github.com/sirupsen/logrus"
)

const (
	logFileMagic   = "CPLG"
	logFileVersion = 1
	logFilePattern = "canplat_%v.cplog"
)

// FileSink writes entries to a binary log file inside a directory.
// Each record is length prefixed and protected by a CCITT CRC-16 so a
// truncated or corrupted tail can be detected on read back.
type FileSink struct {
	file   *os.File
	writer *bufio.Writer
}

// NewFileSink creates a new timestamped log file inside dir
func NewFileSink(dir string) (*FileSink, error) {
	name := filepath.Join(dir, fmt.Sprintf(logFilePattern, time.Now().Unix()))
	file, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	writer := bufio.NewWriter(file)
	_, err = writer.WriteString(logFileMagic)
	if err == nil {
		err = writer.WriteByte(logFileVersion)
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	log.Infof("[TELEMETRY] logging to %v", name)
	return &FileSink{file: file, writer: writer}, nil
}

// Name returns the path of the underlying log file
func (s *FileSink) Name() string {
	return s.file.Name()
}

func (s *FileSink) Write(entries []Entry) error {
	for i := range entries {
		body := encodeEntry(&entries[i])
		var header [2]byte
		binary.LittleEndian.PutUint16(header[:], uint16(len(body)))
		if _, err := s.writer.Write(header[:]); err != nil {
			return err
		}
		if _, err := s.writer.Write(body); err != nil {
			return err
		}
		var trailer [2]byte
		binary.LittleEndian.PutUint16(trailer[:], crc.Checksum(body))
		if _, err := s.writer.Write(trailer[:]); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSink) Close() error {
	err := s.writer.Flush()
	if errClose := s.file.Close(); err == nil {
		err = errClose
	}
	return err
}

func encodeEntry(entry *Entry) []byte {
	body := make([]byte, 0, 16+len(entry.Name)+len(entry.Units)+entry.payloadSize())
	body = append(body, byte(entry.Kind))
	body = binary.LittleEndian.AppendUint64(body, math.Float64bits(entry.Timestamp))
	body = append(body, byte(len(entry.Name)))
	body = append(body, entry.Name...)
	body = append(body, byte(len(entry.Units)))
	body = append(body, entry.Units...)
	switch entry.Kind {
	case KindRaw:
		body = append(body, byte(len(entry.Raw)))
		body = append(body, entry.Raw...)
	case KindBoolean, KindBooleanArray:
		body = append(body, byte(len(entry.Booleans)))
		for _, v := range entry.Booleans {
			if v {
				body = append(body, 1)
			} else {
				body = append(body, 0)
			}
		}
	case KindInteger, KindIntegerArray:
		body = append(body, byte(len(entry.Integers)))
		for _, v := range entry.Integers {
			body = binary.LittleEndian.AppendUint64(body, uint64(v))
		}
	case KindFloat, KindFloatArray:
		body = append(body, byte(len(entry.Floats)))
		for _, v := range entry.Floats {
			body = binary.LittleEndian.AppendUint32(body, math.Float32bits(v))
		}
	case KindDouble, KindDoubleArray:
		body = append(body, byte(len(entry.Doubles)))
		for _, v := range entry.Doubles {
			body = binary.LittleEndian.AppendUint64(body, math.Float64bits(v))
		}
	case KindString:
		body = append(body, byte(len(entry.Str)))
		body = append(body, entry.Str...)
	}
	return body
}

func decodeEntry(body []byte) (Entry, error) {
	var entry Entry
	if len(body) < 12 {
		return entry, io.ErrUnexpectedEOF
	}
	entry.Kind = Kind(body[0])
	entry.Timestamp = math.Float64frombits(binary.LittleEndian.Uint64(body[1:9]))
	pos := 9
	nameLen := int(body[pos])
	pos++
	if pos+nameLen+1 > len(body) {
		return entry, io.ErrUnexpectedEOF
	}
	entry.Name = string(body[pos : pos+nameLen])
	pos += nameLen
	unitsLen := int(body[pos])
	pos++
	if pos+unitsLen+1 > len(body) {
		return entry, io.ErrUnexpectedEOF
	}
	entry.Units = string(body[pos : pos+unitsLen])
	pos += unitsLen
	count := int(body[pos])
	pos++
	values := body[pos:]
	switch entry.Kind {
	case KindRaw:
		if len(values) < count {
			return entry, io.ErrUnexpectedEOF
		}
		entry.Raw = append([]byte{}, values[:count]...)
	case KindBoolean, KindBooleanArray:
		if len(values) < count {
			return entry, io.ErrUnexpectedEOF
		}
		entry.Booleans = make([]bool, count)
		for i := 0; i < count; i++ {
			entry.Booleans[i] = values[i] != 0
		}
	case KindInteger, KindIntegerArray:
		if len(values) < 8*count {
			return entry, io.ErrUnexpectedEOF
		}
		entry.Integers = make([]int64, count)
		for i := 0; i < count; i++ {
			entry.Integers[i] = int64(binary.LittleEndian.Uint64(values[8*i:]))
		}
	case KindFloat, KindFloatArray:
		if len(values) < 4*count {
			return entry, io.ErrUnexpectedEOF
		}
		entry.Floats = make([]float32, count)
		for i := 0; i < count; i++ {
			entry.Floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(values[4*i:]))
		}
	case KindDouble, KindDoubleArray:
		if len(values) < 8*count {
			return entry, io.ErrUnexpectedEOF
		}
		entry.Doubles = make([]float64, count)
		for i := 0; i < count; i++ {
			entry.Doubles[i] = math.Float64frombits(binary.LittleEndian.Uint64(values[8*i:]))
		}
	case KindString:
		if len(values) < count {
			return entry, io.ErrUnexpectedEOF
		}
		entry.Str = string(values[:count])
	default:
		return entry, fmt.Errorf("unknown entry kind %v", body[0])
	}
	return entry, nil
}

// ReadAll decodes a complete log file. It returns [canplat.ErrCRC] when
// a record fails its checksum.
func ReadAll(name string) ([]Entry, error) {
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if len(raw) < 5 || string(raw[:4]) != logFileMagic {
		return nil, fmt.Errorf("not a telemetry log file : %v", name)
	}
	if raw[4] != logFileVersion {
		return nil, fmt.Errorf("unsupported log file version %v", raw[4])
	}
	entries := []Entry{}
	pos := 5
	for pos < len(raw) {
		if pos+2 > len(raw) {
			return entries, io.ErrUnexpectedEOF
		}
		bodyLen := int(binary.LittleEndian.Uint16(raw[pos:]))
		pos += 2
		if pos+bodyLen+2 > len(raw) {
			return entries, io.ErrUnexpectedEOF
		}
		body := raw[pos : pos+bodyLen]
		pos += bodyLen
		checksum := binary.LittleEndian.Uint16(raw[pos:])
		pos += 2
		if crc.Checksum(body) != checksum {
			return entries, canplat.ErrCRC
		}
		entry, err := decodeEntry(body)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
