package listener

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/cuemby/meshrelay/pkg/decoder"
	"github.com/cuemby/meshrelay/pkg/log"
	"github.com/cuemby/meshrelay/pkg/metrics"
	"github.com/cuemby/meshrelay/pkg/render"
	"github.com/cuemby/meshrelay/pkg/router"
	"github.com/cuemby/meshrelay/pkg/storage"
	"github.com/cuemby/meshrelay/pkg/types"
	"github.com/rs/zerolog"
)

// Sender delivers rendered notifications. *telegram.Client implements it.
type Sender interface {
	Send(ctx context.Context, text string, mode types.MarkupMode) bool
}

// PipelineConfig holds the collaborators of a Pipeline. They are not
// modified after construction.
type PipelineConfig struct {
	Store      storage.Store
	StoreTypes storage.TypeSet
	Router     *router.Router
	Renderer   *render.Renderer

	// Sender is nil when forwarding is disabled
	Sender Sender
}

// Outcome reports what happened to one packet
type Outcome struct {
	Message   *types.Message
	Stored    bool
	RecordID  uint64
	Rule      *types.ForwardingRule
	Forwarded bool
	Delivered bool

	// Err is the decode or storage error, if any
	Err error
}

// Pipeline runs decode, store, match, render and deliver for one packet
type Pipeline struct {
	store      storage.Store
	storeTypes storage.TypeSet
	router     *router.Router
	renderer   *render.Renderer
	sender     Sender
	logger     zerolog.Logger
}

// NewPipeline creates a pipeline. A nil Router matches nothing and a nil
// Renderer uses the built-in templates.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("pipeline requires a store")
	}

	rt := cfg.Router
	if rt == nil {
		rt = router.NewRouter(nil)
	}

	renderer := cfg.Renderer
	if renderer == nil {
		set, err := render.NewTemplateSet(render.DefaultTemplates())
		if err != nil {
			return nil, err
		}
		renderer = render.NewRenderer(set)
	}

	return &Pipeline{
		store:      cfg.Store,
		storeTypes: cfg.StoreTypes,
		router:     rt,
		renderer:   renderer,
		sender:     cfg.Sender,
		logger:     log.WithComponent("pipeline"),
	}, nil
}

// ForwardingEnabled reports whether matched messages are delivered
func (p *Pipeline) ForwardingEnabled() bool {
	return p.sender != nil
}

// Process handles one packet. Errors are logged and reported in the
// outcome, never returned, so one bad packet cannot stop the loop.
func (p *Pipeline) Process(ctx context.Context, pkt *types.InboundPacket) Outcome {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PacketProcessing)
	metrics.PacketsReceived.Inc()

	logger := p.logger.With().
		Str("packet_id", pkt.ID).
		Str("addr", addrString(pkt)).
		Logger()

	msg, err := decoder.Decode(pkt.Payload)
	if err != nil {
		p.logDecodeError(logger, pkt, err)
		return Outcome{Err: err}
	}

	out := Outcome{Message: msg}
	logger = withPayload(logger.With().
		Str("type", string(msg.Type)).
		Str("src", msg.Src()), msg.Payload()).
		Logger()

	if compact, err := msg.MarshalJSON(); err == nil {
		logger.Info().RawJSON("message", compact).Msg("UDP message received")
	}

	if storage.ShouldStore(msg, p.storeTypes) {
		p.persist(ctx, logger, pkt, msg, &out)
	} else {
		logger.Debug().Msg("Message type not selected for storage")
	}

	if p.sender == nil {
		return out
	}
	p.forward(ctx, logger, msg, &out)
	return out
}

// persist inserts the message. A failed insert is logged and forwarding
// continues.
func (p *Pipeline) persist(ctx context.Context, logger zerolog.Logger, pkt *types.InboundPacket, msg *types.Message, out *Outcome) {
	rec := storage.RecordFromMessage(msg, string(pkt.Payload), pkt.ReceivedAt)

	timer := metrics.NewTimer()
	id, err := p.store.Insert(ctx, rec)
	timer.ObserveDurationVec(metrics.StoreDuration, metrics.OpInsert)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to store message")
		metrics.StoreErrors.Inc()
		metrics.UpdateComponent(metrics.ComponentStore, false, err.Error())
		out.Err = err
		return
	}

	out.Stored = true
	out.RecordID = id
	metrics.MessagesStored.WithLabelValues(string(msg.Type)).Inc()
	metrics.LastStoredTimestamp.Set(float64(pkt.ReceivedAt.Unix()))
	metrics.UpdateComponent(metrics.ComponentStore, true, "")
	logger.Debug().Uint64("record_id", id).Msg("Message stored")
}

func (p *Pipeline) forward(ctx context.Context, logger zerolog.Logger, msg *types.Message, out *Outcome) {
	rule := p.router.Route(msg)
	if rule == nil {
		metrics.Forwards.WithLabelValues(metrics.ResultNoMatch).Inc()
		logger.Debug().Msg("No forwarding rule matched")
		return
	}
	out.Rule = rule

	text, err := p.renderer.Execute(msg)
	if err != nil {
		metrics.RenderFallbacks.Inc()
		logger.Warn().Err(err).Msg("Template rendering failed, sending error template")
	}

	out.Forwarded = true
	out.Delivered = p.sender.Send(ctx, text, types.MarkupRichText)
	if out.Delivered {
		metrics.Forwards.WithLabelValues(metrics.ResultDelivered).Inc()
		logger.Info().Str("rule", rule.String()).Msg("Message forwarded")
	} else {
		metrics.Forwards.WithLabelValues(metrics.ResultFailed).Inc()
		logger.Warn().Str("rule", rule.String()).Msg("Message matched but was not delivered")
	}
}

// withPayload adds the type-specific members of a message to its logger
func withPayload(c zerolog.Context, payload types.Payload) zerolog.Context {
	switch p := payload.(type) {
	case types.TextPayload:
		return c.Int("text_len", utf8.RuneCountInString(p.Msg))
	case types.PositionPayload:
		if p.HasCoordinates() {
			return c.Str("lat", p.Lat.String()).Str("long", p.Long.String())
		}
	case types.AckPayload:
		return c.Str("ack_id", p.AckID)
	}
	return c
}

func (p *Pipeline) logDecodeError(logger zerolog.Logger, pkt *types.InboundPacket, err error) {
	var encErr *decoder.EncodingError
	var fmtErr *decoder.FormatError

	switch {
	case errors.As(err, &encErr):
		metrics.PacketsDropped.WithLabelValues(metrics.ReasonEncoding).Inc()
		logger.Warn().Int("size", encErr.Size).Msg("Dropping datagram that is not valid UTF-8")
	case errors.As(err, &fmtErr):
		metrics.PacketsDropped.WithLabelValues(metrics.ReasonFormat).Inc()
		logger.Warn().Err(fmtErr.Err).Msg("Dropping datagram that is not a JSON object")
		logger.Debug().Str("text", fmtErr.Text).Msg("Rejected datagram text")
	default:
		metrics.PacketsDropped.WithLabelValues(metrics.ReasonFormat).Inc()
		logger.Warn().Err(err).Int("size", len(pkt.Payload)).Msg("Dropping undecodable datagram")
	}
}

func addrString(pkt *types.InboundPacket) string {
	if pkt.Addr == nil {
		return ""
	}
	return pkt.Addr.String()
}
