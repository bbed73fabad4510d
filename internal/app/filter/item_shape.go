package filter

import (
	"context"
)

// ItemShapeFilter rejects items that set neither or both of track ref and media URL.
type ItemShapeFilter struct{}

func (f *ItemShapeFilter) Name() string {
	return "item_shape_filter"
}

func (f *ItemShapeFilter) Description() string {
	return "Rejects items that do not set exactly one of track ref or media URL"
}

func (f *ItemShapeFilter) ReturnCodes() []string {
	return []string{"invalid_item"}
}

func (f *ItemShapeFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *ItemShapeFilter) AppliesTo(kind RequestKind) bool {
	return true
}

func (f *ItemShapeFilter) Check(ctx context.Context, req Request) Result {
	if err := req.Item.Validate(); err != nil {
		return Reject("invalid_item")
	}
	return Accept()
}

func init() {
	Register("item_shape_filter", func() Filter {
		return &ItemShapeFilter{}
	})
}
