package wire

import "github.com/dreamware/fluxgraph/internal/tensor"

// Type tags the first body field of every framed message (spec.md §4.9).
type Type uint32

const (
	EchoRequest       Type = 1
	EchoResponse      Type = 2
	HeartBeatNotify   Type = 3
	FileRequest       Type = 11
	FileResponse      Type = 12
	FileFinishNotify  Type = 13
	PullRequest       Type = 14
	PullResponse      Type = 15
	PushNotify        Type = 16
	ModelSaveRequest  Type = 17
	ModelSaveResponse Type = 18
	TerminationNotify Type = 19
	UserRequest       Type = 31
	UserResponse      Type = 32
	UserNotify        Type = 33
)

// String names a Type for logging; unknown tags print as a bare number.
func (t Type) String() string {
	switch t {
	case EchoRequest:
		return "ECHO_REQUEST"
	case EchoResponse:
		return "ECHO_RESPONSE"
	case HeartBeatNotify:
		return "HEART_BEAT_NOTIFY"
	case FileRequest:
		return "FILE_REQUEST"
	case FileResponse:
		return "FILE_RESPONSE"
	case FileFinishNotify:
		return "FILE_FINISH_NOTIFY"
	case PullRequest:
		return "PULL_REQUEST"
	case PullResponse:
		return "PULL_RESPONSE"
	case PushNotify:
		return "PUSH_NOTIFY"
	case ModelSaveRequest:
		return "MODEL_SAVE_REQUEST"
	case ModelSaveResponse:
		return "MODEL_SAVE_RESPONSE"
	case TerminationNotify:
		return "TERMINATION_NOTIFY"
	case UserRequest:
		return "USER_REQUEST"
	case UserResponse:
		return "USER_RESPONSE"
	case UserNotify:
		return "USER_NOTIFY"
	default:
		return "UNKNOWN"
	}
}

// RequiresResponse reports whether a message of this Type must elicit
// exactly one response message (spec.md §4.9).
func (t Type) RequiresResponse() bool {
	switch t {
	case EchoRequest, FileRequest, PullRequest, ModelSaveRequest, UserRequest:
		return true
	default:
		return false
	}
}

// EchoBody carries ECHO_REQUEST/ECHO_RESPONSE's single byte buffer.
type EchoBody struct {
	Buf []byte
}

// FileResponseBody carries FILE_RESPONSE's fields.
type FileResponseBody struct {
	Epoch int32
	File  string
}

// FileFinishNotifyBody carries FILE_FINISH_NOTIFY's fields.
type FileFinishNotifyBody struct {
	File       string
	Loss       float64
	LossWeight float64
}

// ModelSaveRequestBody carries MODEL_SAVE_REQUEST's fields.
type ModelSaveRequestBody struct {
	Epoch             int32
	Timestamp         string
	KVProtocolVersion int32
}

// UserBody carries USER_REQUEST/USER_RESPONSE/USER_NOTIFY's fields: an
// application-defined rpc_type tag followed by an opaque payload.
type UserBody struct {
	RpcType int32
	Buf     []byte
}

// Message is a tagged union over every wire message kind spec.md §4.9
// names. Exactly one field besides Type is populated, selected by Type;
// HeartBeatNotify, FileRequest, ModelSaveResponse, and TerminationNotify
// carry no body at all.
type Message struct {
	Type Type

	Echo             *EchoBody
	FileResponse     *FileResponseBody
	FileFinishNotify *FileFinishNotifyBody
	PullRequest      *tensor.PullRequest
	PullResponse     *tensor.Map
	PushNotify       *tensor.Map
	ModelSaveRequest *ModelSaveRequestBody
	User             *UserBody
}
