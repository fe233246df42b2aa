package canplat

// Status is the signed 32 bit result code returned by platform operations.
// Zero is success, positive codes are warnings, negative codes are errors.
// The numbering follows the device runtime and should be treated as opaque
// beyond its sign.
type Status int32

const (
	StatusOK Status = 0

	// Warnings
	StatusCanMessageStale Status = 1000
	StatusBufferFull      Status = 1006
	StatusGeneralWarning  Status = 1100

	// Errors
	StatusTxFailed          Status = -1001
	StatusInvalidParamValue Status = -1002
	StatusRxTimeout         Status = -1003
	StatusTxTimeout         Status = -1004
	StatusUnexpectedArbId   Status = -1005
	StatusCanOverflowed     Status = -1006
	StatusSensorNotPresent  Status = -1007
	StatusGeneralError      Status = -1100
	StatusSigNotUpdated     Status = -1200
	StatusInvalidHandle     Status = -1601
	StatusInvalidNetwork    Status = -10001
	StatusNotFound          Status = -10004
	StatusInvalidSize       Status = -10015
	StatusCouldNotSerialize Status = -10026
	StatusDirectoryMissing  Status = -10029
	StatusLoggerNotRunning  Status = -10031
)

// A map between the status codes and their description
var statusDescriptions = map[Status]string{
	StatusOK:                "Operation completed successfully",
	StatusCanMessageStale:   "CAN message is stale",
	StatusBufferFull:        "Buffer is full, cannot insert more data",
	StatusGeneralWarning:    "General warning occurred",
	StatusTxFailed:          "Could not transmit CAN frame",
	StatusInvalidParamValue: "Incorrect argument passed into function",
	StatusRxTimeout:         "CAN frame not received or too stale",
	StatusTxTimeout:         "CAN transmit timed out",
	StatusUnexpectedArbId:   "Arbitration ID is incorrect",
	StatusCanOverflowed:     "CAN reception overflowed",
	StatusSensorNotPresent:  "Sensor not present",
	StatusGeneralError:      "General error occurred",
	StatusSigNotUpdated:     "No new response to update signal",
	StatusInvalidHandle:     "Handle passed into function is incorrect",
	StatusInvalidNetwork:    "Invalid network",
	StatusNotFound:          "Could not find this value when searching for it",
	StatusInvalidSize:       "Size is invalid",
	StatusCouldNotSerialize: "The data could not be serialized",
	StatusDirectoryMissing:  "Could not find specified directory",
	StatusLoggerNotRunning:  "The logger is not running, start the logger before writing any signals",
}

func (s Status) Error() string {
	description, ok := statusDescriptions[s]
	if ok {
		return description
	}
	return statusDescriptions[StatusGeneralError]
}

// Code returns the raw signed code, preserved for diagnostics
func (s Status) Code() int32 {
	return int32(s)
}

// IsOK is true for the success value space i.e. zero or positive codes
func (s Status) IsOK() bool {
	return s >= 0
}

// IsWarning is true for codes that signal success with a caveat
func (s Status) IsWarning() bool {
	return s > 0
}

// IsError is true for the negative error code space
func (s Status) IsError() bool {
	return s < 0
}
