package stdout

import (
	"context"
	"fmt"

	"xinbound/internal/inbound"
	"xinbound/internal/publishers"
)

type Publisher struct{}

func (p *Publisher) Publish(_ context.Context, records []*inbound.Record, config map[string]interface{}) error {
	payload, err := publishers.GenerateSubscriptionPayload(records, config)
	if err != nil {
		return err
	}

	fmt.Println("========== PUBLISHED SUBSCRIPTION ==========")
	fmt.Println(payload)
	fmt.Println("============================================")
	return nil
}

func init() {
	publishers.Register("stdout", func() publishers.Publisher { return &Publisher{} })
}
