package llm

import (
	"context"
	"fmt"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/jsonclean"
)

// CompleteJSON runs req and decodes the cleaned reply into out.
func CompleteJSON(ctx context.Context, p Provider, req Request, out any) error {
	raw, err := p.Complete(ctx, req)
	if err != nil {
		return err
	}

	if err := jsonclean.Decode(raw, out); err != nil {
		return fmt.Errorf("%s: %w: invalid LLM JSON output", p.Name(), apierror.ErrUpstream)
	}
	return nil
}
