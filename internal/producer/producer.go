package producer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/linuxmatters/blockfeed/internal/stream"
)

// Source produces mono samples on demand. ReadSamples may return a short
// count together with io.EOF at the end of the stream.
type Source interface {
	ReadSamples(dst []float32) (int, error)
}

// Config holds the producer parameters.
type Config struct {
	// Quantum is announced to the engine before the first blocks when > 0
	Quantum int

	// BlockSize is the length of every block but the last; defaults to
	// Quantum, then stream.DefaultQuantum
	BlockSize int

	// Jitter adds a uniform random delay up to this long before serving
	// each request
	Jitter time.Duration

	Logger *log.Logger
}

// Producer answers engine refill requests with blocks read from a Source.
type Producer struct {
	src       Source
	quantum   int
	blockSize int
	jitter    time.Duration
	log       *log.Logger

	done     chan struct{}
	doneOnce sync.Once
	served   atomic.Int64
	frames   atomic.Int64
}

// New creates a producer over src.
func New(src Source, cfg Config) *Producer {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = cfg.Quantum
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = stream.DefaultQuantum
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Producer{
		src:       src,
		quantum:   cfg.Quantum,
		blockSize: cfg.BlockSize,
		jitter:    cfg.Jitter,
		log:       cfg.Logger.WithPrefix("producer"),
		done:      make(chan struct{}),
	}
}

// Done is closed once the source is exhausted and its last block was sent.
func (p *Producer) Done() <-chan struct{} {
	return p.done
}

// Served returns the number of requests answered.
func (p *Producer) Served() int64 {
	return p.served.Load()
}

// Frames returns the number of frames read from the source.
func (p *Producer) Frames() int64 {
	return p.frames.Load()
}

// Run serves requests until the source ends, ctx is cancelled, or requests
// is closed. Requests that piled up while a previous one was served are
// coalesced into the largest.
func (p *Producer) Run(ctx context.Context, requests <-chan stream.Request, inbox chan<- stream.Message) error {
	if p.quantum > 0 {
		if err := send(ctx, inbox, stream.Message{Quantum: p.quantum}); err != nil {
			return err
		}
	}

	for {
		var req stream.Request
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok = <-requests:
			if !ok {
				return nil
			}
		}
		need := coalesce(req.Need, requests)

		if err := p.wait(ctx); err != nil {
			return err
		}

		blocks, err := p.read(need)
		if len(blocks) > 0 {
			if sendErr := send(ctx, inbox, stream.Message{Blocks: blocks}); sendErr != nil {
				return sendErr
			}
		}
		served := p.served.Add(1)
		p.log.Debug("request served", "need", need, "blocks", len(blocks), "served", served)

		if errors.Is(err, io.EOF) {
			p.log.Info("source exhausted", "frames", p.frames.Load())
			p.doneOnce.Do(func() { close(p.done) })
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading source: %w", err)
		}
	}
}

// read renders ceil(need/blockSize) blocks. On a source error the blocks
// read so far are returned with it.
func (p *Producer) read(need int) ([][]float32, error) {
	count := (need + p.blockSize - 1) / p.blockSize
	blocks := make([][]float32, 0, count)
	for range count {
		block := make([]float32, p.blockSize)
		n, err := p.src.ReadSamples(block)
		if n > 0 {
			blocks = append(blocks, block[:n])
			p.frames.Add(int64(n))
		}
		if err != nil {
			return blocks, err
		}
	}
	return blocks, nil
}

func (p *Producer) wait(ctx context.Context) error {
	if p.jitter <= 0 {
		return nil
	}
	d := rand.N(p.jitter)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// coalesce drains requests already queued and returns the largest Need
func coalesce(need int, requests <-chan stream.Request) int {
	for {
		select {
		case r, ok := <-requests:
			if !ok {
				return need
			}
			need = max(need, r.Need)
		default:
			return need
		}
	}
}

func send(ctx context.Context, inbox chan<- stream.Message, msg stream.Message) error {
	select {
	case inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
