package minitable

import (
	"context"
)

type Pager interface {
	GetPage(context.Context, PageIndex) (*Page, error)
	TotalPages() uint32
	MaxPages() uint32
	Flush(context.Context, PageIndex) error
	Close(context.Context) error
}

type Parser interface {
	Parse(context.Context, string) (Statement, error)
}
