package extract

// Strategy attempts to extract a single value from a page. A false result
// means "not found" and is never an error.
type Strategy[T any] interface {
	TryExtract(p Page) (T, bool)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc[T any] func(p Page) (T, bool)

func (f StrategyFunc[T]) TryExtract(p Page) (T, bool) {
	return f(p)
}

// Chain tries each strategy in order and returns the first success.
type Chain[T any] []Strategy[T]

func (c Chain[T]) TryExtract(p Page) (T, bool) {
	for _, s := range c {
		if v, ok := s.TryExtract(p); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
