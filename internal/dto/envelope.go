package dto

// Envelope is the wrapper every non-streaming endpoint answers with.
// success=false is a failure even when data is present.
type Envelope[T any] struct {
	Success bool    `json:"success"`
	Data    T       `json:"data"`
	Error   *string `json:"error"`
}

func (e Envelope[T]) ErrorMessage() string {
	if e.Error == nil {
		return ""
	}
	return *e.Error
}
