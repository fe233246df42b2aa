package telemetry

// MaxLogPacketSize is the maximum encoded payload of a single entry
const MaxLogPacketSize = 64

// Kind identifies the value type carried by an [Entry]
type Kind uint8

const (
	KindRaw Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindDouble
	KindString
	KindBooleanArray
	KindIntegerArray
	KindFloatArray
	KindDoubleArray
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBooleanArray:
		return "boolean_array"
	case KindIntegerArray:
		return "integer_array"
	case KindFloatArray:
		return "float_array"
	case KindDoubleArray:
		return "double_array"
	default:
		return "unknown"
	}
}

// Entry is one timestamped telemetry sample. Only the value field
// matching Kind is populated.
type Entry struct {
	Name      string
	Units     string
	Kind      Kind
	Timestamp float64
	Raw       []byte
	Booleans  []bool
	Integers  []int64
	Floats    []float32
	Doubles   []float64
	Str       string
}

// payloadSize returns the encoded size of the entry value in bytes
func (e *Entry) payloadSize() int {
	switch e.Kind {
	case KindRaw:
		return len(e.Raw)
	case KindBoolean, KindBooleanArray:
		return len(e.Booleans)
	case KindInteger, KindIntegerArray:
		return 8 * len(e.Integers)
	case KindFloat, KindFloatArray:
		return 4 * len(e.Floats)
	case KindDouble, KindDoubleArray:
		return 8 * len(e.Doubles)
	case KindString:
		return len(e.Str)
	default:
		return 0
	}
}
