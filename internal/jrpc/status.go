package jrpc

// Status is a work order status code carried in error.code.
type Status int

// Work order status codes.
const (
	StatusSuccess                 Status = 0
	StatusFailed                  Status = 1
	StatusInvalidParameterOrValue Status = 2
	StatusAccessDenied            Status = 3
	StatusInvalidSignature        Status = 4
	StatusPending                 Status = 5
	StatusScheduled               Status = 6
	StatusProcessing              Status = 7
	StatusBusy                    Status = 8
	StatusInvalidDataFormat       Status = 9
	StatusUnknownError            Status = 10
)

// JSON-RPC 2.0 reserved error codes.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParameter = -32602
	CodeInternalError    = -32603
)

var statusNames = map[Status]string{
	StatusSuccess:                 "SUCCESS",
	StatusFailed:                  "FAILED",
	StatusInvalidParameterOrValue: "INVALID_PARAMETER_FORMAT_OR_VALUE",
	StatusAccessDenied:            "ACCESS_DENIED",
	StatusInvalidSignature:        "INVALID_SIGNATURE",
	StatusPending:                 "PENDING",
	StatusScheduled:               "SCHEDULED",
	StatusProcessing:              "PROCESSING",
	StatusBusy:                    "BUSY",
	StatusInvalidDataFormat:       "INVALID_DATA_FORMAT",
	StatusUnknownError:            "UNKNOWN_ERROR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}
