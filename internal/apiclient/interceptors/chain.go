// interceptors предоставляет набор http.RoundTripper-интерсепторов для
// исходящих запросов к REST API бэкенда.
//
// Порядок в типовой цепочке: metadata -> timeout -> logging -> транспорт.
// Интерсепторы не модифицируют входящий *http.Request: заголовки
// выставляются на клоне, как того требует контракт http.RoundTripper.
package interceptors

import "net/http"

// Interceptor оборачивает следующий RoundTripper.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain применяет интерсепторы к base в порядке перечисления:
// первый в списке — самый внешний.
func Chain(base http.RoundTripper, ics ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	for i := len(ics) - 1; i >= 0; i-- {
		base = ics[i](base)
	}

	return base
}
