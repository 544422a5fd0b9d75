// Package ingest normalizes decoded conversation exports into the unified
// message table.
package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jasperwreed/msgstats/internal/errs"
	"github.com/jasperwreed/msgstats/internal/models"
)

type Options struct {
	Owner             string
	HideNames         bool
	IncludeGroupChats bool

	// Location is used to derive calendar dates; nil means UTC.
	Location *time.Location

	// Aliases is reused when set, otherwise a new map is created for the
	// run whenever HideNames is on.
	Aliases *Pseudonymizer
}

// AcceptedBatch describes one export that contributed rows.
type AcceptedBatch struct {
	Source           string
	ConversationName string
	Messages         int
	Raw              []byte
}

type Result struct {
	Table    *models.Table
	Aliases  *Pseudonymizer
	Accepted []AcceptedBatch
	Skipped  []error
}

type Ingester struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Ingester{
		opts:   opts,
		logger: logger.Named("ingest"),
	}
}

// Build normalizes every batch and concatenates the survivors. Batches that
// cannot contribute are skipped and reported in Result.Skipped; when none
// survive Build returns an EmptyResultError.
func (in *Ingester) Build(batches []*models.RawBatch) (*Result, error) {
	aliases := in.opts.Aliases
	if aliases == nil && in.opts.HideNames {
		aliases = NewPseudonymizer(in.opts.Owner)
	}

	result := &Result{Aliases: aliases}
	var rows []models.Message

	for i, batch := range batches {
		source := batch.Source
		if source == "" {
			source = fmt.Sprintf("batch %d", i)
		}

		messages, name, err := in.normalize(batch, aliases)
		if err != nil {
			skipped := errs.NewSkippableBatchError(source, "batch skipped", err)
			in.logger.Warn("skipping conversation export",
				zap.String("source", source),
				zap.String("code", errs.Code(skipped)),
				zap.Error(err))
			result.Skipped = append(result.Skipped, skipped)
			continue
		}

		rows = append(rows, messages...)
		result.Accepted = append(result.Accepted, AcceptedBatch{
			Source:           source,
			ConversationName: name,
			Messages:         len(messages),
			Raw:              batch.Raw,
		})
	}

	if len(result.Accepted) == 0 {
		return nil, errs.NewEmptyResultError(
			fmt.Sprintf("no conversation survived ingestion (%d batches, %d skipped)", len(batches), len(result.Skipped)))
	}

	table := models.NewTable(rows)
	if !in.opts.IncludeGroupChats {
		table = table.Filter(func(m models.Message) bool {
			return len(m.Sendees) == 1
		})
	}
	result.Table = table

	in.logger.Info("message table built",
		zap.Int("batches", len(result.Accepted)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("rows", table.Len()),
		zap.Bool("hide_names", in.opts.HideNames),
		zap.Bool("group_chats", in.opts.IncludeGroupChats))

	return result, nil
}

func (in *Ingester) normalize(batch *models.RawBatch, aliases *Pseudonymizer) ([]models.Message, string, error) {
	participants := batch.ParticipantNames()
	for _, name := range participants {
		if name == models.UnknownParticipant {
			return nil, "", fmt.Errorf("participants include %q", models.UnknownParticipant)
		}
	}

	senders := make([]string, len(batch.Messages))
	for i, msg := range batch.Messages {
		if msg.TimestampMs == nil {
			return nil, "", fmt.Errorf("message %d has no timestamp", i)
		}
		senders[i] = msg.SenderName
	}

	if in.opts.HideNames {
		for i, name := range participants {
			participants[i] = aliases.Alias(name)
		}
		for i, name := range senders {
			senders[i] = aliases.Alias(name)
		}
	}

	sort.Strings(participants)
	name := ConversationKey(participants)

	if !hasContentField(batch.Messages) {
		return nil, "", fmt.Errorf("no message carries a content field")
	}

	messages := make([]models.Message, 0, len(batch.Messages))
	for i, raw := range batch.Messages {
		ts := *raw.TimestampMs
		when := time.UnixMilli(ts).In(in.opts.Location)

		msg := models.Message{
			SenderName:       senders[i],
			TimestampMs:      ts,
			Sendees:          sendees(participants, senders[i]),
			ConversationName: name,
			Datetime:         when,
			Date:             when.Format(time.DateOnly),
		}
		if text, ok := raw.Text(); ok {
			msg.Content = &text
		}

		messages = append(messages, msg)
	}

	return messages, name, nil
}

// ConversationKey renders a sorted participant list as the conversation's
// canonical name, e.g. ['Alice', 'Person-0'].
func ConversationKey(sortedParticipants []string) string {
	quoted := make([]string, len(sortedParticipants))
	for i, p := range sortedParticipants {
		quoted[i] = quoteName(p)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// quoteName quotes like a Python string literal: single quotes unless the
// name holds a single quote and no double quote.
func quoteName(name string) string {
	quote := '\''
	if strings.ContainsRune(name, '\'') && !strings.ContainsRune(name, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.WriteRune(quote)
	for _, r := range name {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case quote:
			b.WriteRune('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(quote)
	return b.String()
}

func hasContentField(messages []models.RawMessage) bool {
	for _, m := range messages {
		if m.HasContentField() {
			return true
		}
	}
	return false
}

// sendees builds a new slice for every row so no two rows share backing
// storage.
func sendees(participants []string, sender string) []string {
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		if p != sender {
			out = append(out, p)
		}
	}
	return out
}
