package protocol

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Code    string // Error code from the keyed registry (e.g. "E201")
	Message string // Human-readable error message
	Fatal   bool   // If true, connection should be closed
}

// EncodeErrorMessage encodes an ErrorMessage to bytes.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteString(em.Code)
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage from bytes.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.ReadString()
	if err != nil {
		return nil, malformed("error code", err)
	}
	msg, err := d.ReadString()
	if err != nil {
		return nil, malformed("error message", err)
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, malformed("error flag", err)
	}
	return &ErrorMessage{
		Code:    code,
		Message: msg,
		Fatal:   fatal,
	}, nil
}
