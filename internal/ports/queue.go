package ports

import "github.com/BCIDriver/Nurobuckle/internal/domain"

type ReadingQueue interface {
	Enqueue(r domain.Reading) bool
	DequeueBatch(max int) []domain.Reading
	Len() int
}
