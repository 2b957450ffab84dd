package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dreamware/fluxgraph/internal/stream"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// encodeBody serialises msg's body (not the Type tag) into w.
func encodeBody(w *stream.Writer, msg *Message) error {
	switch msg.Type {
	case EchoRequest, EchoResponse:
		if msg.Echo == nil {
			return fmt.Errorf("wire: %v requires Echo body", msg.Type)
		}
		w.WriteBytes(msg.Echo.Buf)
	case HeartBeatNotify, FileRequest, ModelSaveResponse, TerminationNotify:
		// empty body
	case FileResponse:
		if msg.FileResponse == nil {
			return fmt.Errorf("wire: %v requires FileResponse body", msg.Type)
		}
		w.WriteI32(msg.FileResponse.Epoch)
		w.WriteString(msg.FileResponse.File)
	case FileFinishNotify:
		if msg.FileFinishNotify == nil {
			return fmt.Errorf("wire: %v requires FileFinishNotify body", msg.Type)
		}
		w.WriteString(msg.FileFinishNotify.File)
		w.WriteF64(msg.FileFinishNotify.Loss)
		w.WriteF64(msg.FileFinishNotify.LossWeight)
	case PullRequest:
		if msg.PullRequest == nil {
			return fmt.Errorf("wire: %v requires PullRequest body", msg.Type)
		}
		tensor.WritePullRequest(w, msg.PullRequest)
	case PullResponse:
		if msg.PullResponse == nil {
			return fmt.Errorf("wire: %v requires PullResponse body", msg.Type)
		}
		tensor.WriteTensorMap(w, msg.PullResponse)
	case PushNotify:
		if msg.PushNotify == nil {
			return fmt.Errorf("wire: %v requires PushNotify body", msg.Type)
		}
		tensor.WriteTensorMap(w, msg.PushNotify)
	case ModelSaveRequest:
		if msg.ModelSaveRequest == nil {
			return fmt.Errorf("wire: %v requires ModelSaveRequest body", msg.Type)
		}
		w.WriteI32(msg.ModelSaveRequest.Epoch)
		w.WriteString(msg.ModelSaveRequest.Timestamp)
		w.WriteI32(msg.ModelSaveRequest.KVProtocolVersion)
	case UserRequest, UserResponse, UserNotify:
		if msg.User == nil {
			return fmt.Errorf("wire: %v requires User body", msg.Type)
		}
		w.WriteI32(msg.User.RpcType)
		w.WriteBytes(msg.User.Buf)
	default:
		return fmt.Errorf("wire: unknown message type %d", msg.Type)
	}
	return w.Err()
}

// decodeBody deserialises a message's body, given its already-read Type.
func decodeBody(r *stream.Reader, t Type) (*Message, error) {
	msg := &Message{Type: t}
	switch t {
	case EchoRequest, EchoResponse:
		msg.Echo = &EchoBody{Buf: r.ReadBytes()}
	case HeartBeatNotify, FileRequest, ModelSaveResponse, TerminationNotify:
		// empty body
	case FileResponse:
		msg.FileResponse = &FileResponseBody{Epoch: r.ReadI32(), File: r.ReadString()}
	case FileFinishNotify:
		msg.FileFinishNotify = &FileFinishNotifyBody{
			File:       r.ReadString(),
			Loss:       r.ReadF64(),
			LossWeight: r.ReadF64(),
		}
	case PullRequest:
		msg.PullRequest = tensor.ReadPullRequest(r)
	case PullResponse:
		msg.PullResponse = tensor.ReadTensorMap(r)
	case PushNotify:
		msg.PushNotify = tensor.ReadTensorMap(r)
	case ModelSaveRequest:
		msg.ModelSaveRequest = &ModelSaveRequestBody{
			Epoch:             r.ReadI32(),
			Timestamp:         r.ReadString(),
			KVProtocolVersion: r.ReadI32(),
		}
	case UserRequest, UserResponse, UserNotify:
		msg.User = &UserBody{RpcType: r.ReadI32(), Buf: r.ReadBytes()}
	default:
		r.SetBad()
		return nil, fmt.Errorf("wire: unknown message type %d", t)
	}
	if r.Bad() {
		return nil, fmt.Errorf("wire: short or corrupt body for %v", t)
	}
	return msg, nil
}

// Encode serialises msg's tag and body into a standalone byte slice,
// without the length prefix BeginMessage/EndMessage add on the wire.
func Encode(msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	w.WriteU32(uint32(msg.Type))
	if err := encodeBody(w, msg); err != nil {
		return nil, err
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a standalone body produced by Encode.
func Decode(body []byte) (*Message, error) {
	r := stream.NewReader(bytes.NewReader(body))
	t := Type(r.ReadU32())
	if r.Bad() {
		return nil, fmt.Errorf("wire: truncated message header")
	}
	return decodeBody(r, t)
}

// BeginMessage serialises msg's tag and body, then returns the framed form:
// a 4-byte little-endian length prefix over the body, followed by the
// body itself (spec.md §4.9 "BeginMessage ... EndMessage back-patches the
// prefix with the body length"). Go buffers the whole body before writing
// because a streaming socket write cannot be back-patched after the fact.
func BeginMessage(msg *Message) ([]byte, error) {
	body, err := Encode(msg)
	if err != nil {
		return nil, err
	}
	framed := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(framed, uint32(len(body)))
	copy(framed[4:], body)
	return framed, nil
}

// WriteMessage frames msg via BeginMessage and writes it to w in one call.
func WriteMessage(w io.Writer, msg *Message) error {
	framed, err := BeginMessage(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(framed)
	return err
}

// ReadMessage reads one length-prefixed frame from r and decodes it.
func ReadMessage(r io.Reader) (*Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return Decode(body)
}
