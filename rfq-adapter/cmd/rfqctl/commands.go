package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/portcall/adapters/pkg/model"
	"github.com/portcall/adapters/rfq-adapter/internal/rfq"
)

const createdSubject = "evt.rfq.created.v1"

// Facade is the part of *rfq.Client the commands drive.
type Facade interface {
	List(ctx context.Context) ([]rfq.RFQ, error)
	Market(ctx context.Context) ([]rfq.RFQ, error)
	Create(ctx context.Context, payload rfq.RFQCreatePayload) (*rfq.RFQ, error)
	Get(ctx context.Context, id rfq.ID) (*rfq.RFQ, error)
	PDFURL(id rfq.ID) string
}

// Announcer publishes a canonical envelope; nil disables announcing.
type Announcer interface {
	Publish(ctx context.Context, subject string, env *model.Envelope) error
}

func runList(ctx context.Context, c Facade, out io.Writer) error {
	items, err := c.List(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, items)
}

func runMarket(ctx context.Context, c Facade, out io.Writer) error {
	items, err := c.Market(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, items)
}

func runGet(ctx context.Context, c Facade, id string, out io.Writer) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	r, err := c.Get(ctx, rfq.ID(id))
	if err != nil {
		return err
	}
	return writeJSON(out, r)
}

func runPDFURL(c Facade, id string, out io.Writer) error {
	_, err := fmt.Fprintln(out, c.PDFURL(rfq.ID(id)))
	return err
}

// runCreate decodes and validates a payload, submits it once and prints the stored record.
func runCreate(ctx context.Context, c Facade, payload io.Reader, ann Announcer, service string, out io.Writer) error {
	var p rfq.RFQCreatePayload
	dec := json.NewDecoder(payload)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("payload must be an RFQ JSON object: %w", err)
	}
	if err := rfq.ValidatePayload(p); err != nil {
		return err
	}

	created, err := c.Create(ctx, p)
	if err != nil {
		return err
	}

	if ann != nil {
		env, err := model.NewEnvelope(service, createdSubject, model.EventRFQCreated, created)
		if err != nil {
			return err
		}
		env.Context = model.Context{RFQID: created.ID, Port: created.Port}
		if err := ann.Publish(ctx, createdSubject, env); err != nil {
			return fmt.Errorf("rfq %d created but not announced: %w", created.ID, err)
		}
	}
	return writeJSON(out, created)
}

// AccountLister is satisfied by *secrets.TokenResolver.
type AccountLister interface {
	DiscoverAccounts(ctx context.Context) ([]string, error)
}

func runAccounts(ctx context.Context, l AccountLister, out io.Writer) error {
	accounts, err := l.DiscoverAccounts(ctx)
	if err != nil {
		return err
	}
	if accounts == nil {
		accounts = []string{}
	}
	return writeJSON(out, accounts)
}

func writeJSON(out io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := out.Write(buf.Bytes())
	return err
}
