package genai

import "fmt"

// ErrorKind описывает этап, на котором запрос к модели завершился ошибкой.
type ErrorKind string

const (
	KindInput     ErrorKind = "input"
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindSchema    ErrorKind = "schema"
)

// GenerationError возвращается, если модель недоступна или ответила не по схеме.
type GenerationError struct {
	Flow       string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s failed (%s): %v", e.Flow, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
