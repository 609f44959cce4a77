package token

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/solaunch/launch-bot/internal/registry"
)

// RegistrySource adapts the backend registry client to RegistryReader.
type RegistrySource struct {
	client *registry.Client
}

func NewRegistrySource(client *registry.Client) *RegistrySource {
	return &RegistrySource{client: client}
}

func (s *RegistrySource) Lookup(ctx context.Context, mint solana.PublicKey) (Partial, error) {
	record, err := s.client.GetToken(ctx, mint.String())
	if err != nil {
		return Partial{}, err
	}
	return Partial{
		Source: SourceRegistry,
		Name:   record.Name,
		Symbol: record.Symbol,
		URI:    record.URI,
	}, nil
}
