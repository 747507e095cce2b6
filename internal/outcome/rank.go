package outcome

import (
	"errors"
	"reflect"
	"sort"
)

// Class is the severity class of an error. Lower values rank first.
type Class int

const (
	// ClassGeneric is any error that is neither an abort nor an interruption.
	ClassGeneric Class = iota
	// ClassAbort is an *AbortError.
	ClassAbort
	// ClassInterrupted is an *InterruptedError.
	ClassInterrupted
)

func (c Class) String() string {
	switch c {
	case ClassAbort:
		return "abort"
	case ClassInterrupted:
		return "interrupted"
	default:
		return "generic"
	}
}

// Classify returns the class of err. The outermost abort or interruption in
// a single-wrap chain decides; errors joined with errors.Join are generic.
func Classify(err error) Class {
	class, _ := classify(err)
	return class
}

// ResultOf maps err to the overall status it stands for: success for nil,
// the carried result for an interruption, aborted for an abort and failure
// for anything else.
func ResultOf(err error) Result {
	if err == nil {
		return ResultSuccess
	}
	class, ie := classify(err)
	switch class {
	case ClassInterrupted:
		return ie.Result
	case ClassAbort:
		return ResultAborted
	default:
		return ResultFailure
	}
}

func classify(err error) (Class, *InterruptedError) {
	for err != nil {
		switch e := err.(type) {
		case *InterruptedError:
			return ClassInterrupted, e
		case *AbortError:
			return ClassAbort, nil
		}
		err = errors.Unwrap(err)
	}
	return ClassGeneric, nil
}

// Compare orders two failures by severity. It returns a negative number when
// a ranks before b, a positive number when b ranks before a, and zero when
// neither is more severe.
func Compare(a, b error) int {
	ca, ia := classify(a)
	cb, ib := classify(b)
	if ca != cb {
		return int(ca) - int(cb)
	}
	if ca == ClassInterrupted {
		switch {
		case ia.Result.WorseThan(ib.Result):
			return -1
		case ib.Result.WorseThan(ia.Result):
			return 1
		}
	}
	return 0
}

// Rank returns a copy of errs ordered most severe first. Equally severe
// errors keep their relative order.
func Rank(errs []error) []error {
	out := append([]error(nil), errs...)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i], out[j]) < 0
	})
	return out
}

// Contains reports whether errs already holds err itself. Only comparable
// error values are matched; distinct values with the same message are kept.
func Contains(errs []error, err error) bool {
	if err == nil || !reflect.TypeOf(err).Comparable() {
		return false
	}
	for _, e := range errs {
		if e != nil && reflect.TypeOf(e) == reflect.TypeOf(err) && e == err {
			return true
		}
	}
	return false
}
