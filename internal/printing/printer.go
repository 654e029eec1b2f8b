package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ariefcatur/go-table-orders/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Targets the venue prints to.
const (
	TargetReceipt = "receipt"
	TargetDrink   = "drink"
	TargetFood    = "food"
	TargetKitchen = "kitchen"
)

var ErrUnknownTarget = errors.New("unknown print target")

// Printer sends rendered text to the device behind target.
type Printer interface {
	Print(ctx context.Context, text, target string) error
}

// CommandPrinter pipes text into an external command. Every "{printer}" in
// Args is replaced with the printer name mapped to the target.
type CommandPrinter struct {
	Command  string
	Args     []string
	Printers map[string]string
	Log      *zap.Logger
}

func (p *CommandPrinter) Print(ctx context.Context, text, target string) error {
	name, ok := p.Printers[target]
	if !ok || name == "" {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = strings.ReplaceAll(a, "{printer}", name)
	}

	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("print to %s (%s): %w: %s", target, name, err, strings.TrimSpace(stderr.String()))
	}
	if p.Log != nil {
		p.Log.Info("printed", zap.String("target", target), zap.String("printer", name), zap.Int("bytes", len(text)))
	}
	return nil
}

// Publisher is the producer side the queue printer hands jobs to.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

var ErrQueueFull = errors.New("print queue full")

// QueuePrinter hands print jobs to print agents over Kafka. Jobs are keyed by
// target, so a target's jobs share a partition and print in order.
type QueuePrinter struct {
	Producer Publisher
	Service  string
	Known    map[string]string
	Log      *zap.Logger
}

type jobKey struct{}

type jobInfo struct {
	tableID string
	kind    string
}

// WithJob tags ctx with the table and document kind being printed, for
// printers that record them.
func WithJob(ctx context.Context, tableID, kind string) context.Context {
	return context.WithValue(ctx, jobKey{}, jobInfo{tableID: tableID, kind: kind})
}

func (p *QueuePrinter) Print(ctx context.Context, text, target string) error {
	if p.Known != nil {
		if _, ok := p.Known[target]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
		}
	}
	info, _ := ctx.Value(jobKey{}).(jobInfo)
	job := kafka.PrintRequestedPayload{TableID: info.tableID, Target: target, Kind: info.kind, Text: text}
	env, err := kafka.NewEnvelope(kafka.EventPrintRequested, p.Service, info.tableID, job)
	if err != nil {
		return err
	}
	if !p.Producer.Publish([]byte(target), kafka.MustMarshal(env)) {
		return fmt.Errorf("%w: %s", ErrQueueFull, target)
	}
	if p.Log != nil {
		p.Log.Info("print job queued", zap.String("event_id", env.EventID), zap.String("target", target))
	}
	return nil
}

// LogPrinter writes the text to the log instead of a device.
type LogPrinter struct {
	Log *zap.Logger
}

func (p LogPrinter) Print(_ context.Context, text, target string) error {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("print", zap.String("target", target), zap.String("text", text))
	return nil
}
