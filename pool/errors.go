package pool

import (
	"errors"
	"fmt"
)

// MaxPoolSize is the largest number of clients a Pool may hold.
const MaxPoolSize = 100

var (
	// ErrSizeNotValid matches every *SizeNotValidError.
	ErrSizeNotValid = errors.New("pool size is not valid")

	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("pool is closed")
)

type SizeNotValidError struct {
	Size int
}

func (e *SizeNotValidError) Error() string {
	return fmt.Sprintf("size %d is not valid (0 < size <= %d)", e.Size, MaxPoolSize)
}

func (e *SizeNotValidError) Is(target error) bool {
	return target == ErrSizeNotValid
}
