package state

// View is the render branch of a resource: Loading, Failed or Ready[T].
type View interface {
	view()
}

// Loading covers both a resource that was never requested and a pending one.
type Loading struct{}

// Failed carries the error payload to display.
type Failed struct {
	Err ErrorInfo
}

// Ready carries the loaded value.
type Ready[T any] struct {
	Value T
}

func (Loading) view()  {}
func (Failed) view()   {}
func (Ready[T]) view() {}

// ViewOf maps every resource state to exactly one branch.
func ViewOf[T any](r *Resource[T]) View {
	if r == nil {
		return Loading{}
	}
	switch r.Status() {
	case StatusError:
		info, _ := r.Err()
		return Failed{Err: info}
	case StatusSuccess:
		v, _ := r.Value()
		return Ready[T]{Value: v}
	default:
		return Loading{}
	}
}
