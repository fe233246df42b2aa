// Package influx provides a telemetry sink backed by InfluxDB v3.
// It is an alternative to the default binary file sink for deployments
// that want live dashboards instead of post-run log analysis.
package influx

import (
	"context"
	"fmt"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
	"github.com/mlajoie/canplat/pkg/telemetry"
	log "github.com/sirupsen/logrus"
)

const measurement = "telemetry"

type Config struct {
	Host     string
	Token    string
	Database string
}

// Sink writes telemetry entries as InfluxDB points
type Sink struct {
	client *influxdb3.Client
}

func NewSink(config Config) (*Sink, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     config.Host,
		Token:    config.Token,
		Database: config.Database,
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[TELEMETRY] influx sink connected to %v", config.Host)
	return &Sink{client: client}, nil
}

// Factory adapts NewSink to [telemetry.SinkFactory]. The logger path is
// ignored, the destination is fixed by the sink configuration.
func Factory(config Config) telemetry.SinkFactory {
	return func(path string) (telemetry.Sink, error) {
		return NewSink(config)
	}
}

func (s *Sink) Write(entries []telemetry.Entry) error {
	points := make([]*influxdb3.Point, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		tags := map[string]string{
			"name": entry.Name,
			"kind": entry.Kind.String(),
		}
		if entry.Units != "" {
			tags["units"] = entry.Units
		}
		sec, frac := int64(entry.Timestamp), entry.Timestamp-float64(int64(entry.Timestamp))
		timestamp := time.Unix(sec, int64(frac*1e9))
		points = append(points, influxdb3.NewPoint(measurement, tags, fields(entry), timestamp))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.WritePoints(ctx, points)
}

func fields(entry *telemetry.Entry) map[string]any {
	values := map[string]any{}
	switch entry.Kind {
	case telemetry.KindRaw:
		values["value"] = entry.Raw
	case telemetry.KindBoolean:
		values["value"] = entry.Booleans[0]
	case telemetry.KindInteger:
		values["value"] = entry.Integers[0]
	case telemetry.KindFloat:
		values["value"] = float64(entry.Floats[0])
	case telemetry.KindDouble:
		values["value"] = entry.Doubles[0]
	case telemetry.KindString:
		values["value"] = entry.Str
	case telemetry.KindBooleanArray:
		for i, v := range entry.Booleans {
			values[indexField(i)] = v
		}
	case telemetry.KindIntegerArray:
		for i, v := range entry.Integers {
			values[indexField(i)] = v
		}
	case telemetry.KindFloatArray:
		for i, v := range entry.Floats {
			values[indexField(i)] = float64(v)
		}
	case telemetry.KindDoubleArray:
		for i, v := range entry.Doubles {
			values[indexField(i)] = v
		}
	}
	return values
}

func indexField(i int) string {
	return fmt.Sprintf("value_%02d", i)
}

func (s *Sink) Close() error {
	return s.client.Close()
}
