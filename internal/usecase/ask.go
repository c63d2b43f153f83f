package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"aurora-qa/internal/domain"
	"aurora-qa/internal/logging"
	"aurora-qa/internal/members"
	"aurora-qa/internal/metrics"
	"aurora-qa/internal/questions"
	"aurora-qa/internal/snapshot"
)

const (
	defaultMaxQuestion = 300
	defaultSampleSize  = 5
)

type SnapshotSource interface {
	Get(ctx context.Context) (*snapshot.Snapshot, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type AskService struct {
	snapshots      SnapshotSource
	logger         *zap.Logger
	metrics        *metrics.Metrics
	maxQuestionLen int
	sampleSize     int
}

type AskInput struct {
	Question string
}

// AskOutput is the answer plus how it was reached. Member is empty unless a
// member was resolved or suggested; Evidence reports whether a targeted
// extractor produced the answer.
type AskOutput struct {
	Answer       string
	Member       string
	Resolution   string
	QuestionType string
	Evidence     bool
}

func NewAskService(snapshots SnapshotSource, logger *zap.Logger, m *metrics.Metrics, maxQuestionLen, sampleSize int) (*AskService, error) {
	if snapshots == nil {
		return nil, errors.New("usecase: snapshot source must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxQuestionLen <= 0 {
		maxQuestionLen = defaultMaxQuestion
	}
	if sampleSize <= 0 {
		sampleSize = defaultSampleSize
	}
	return &AskService{
		snapshots:      snapshots,
		logger:         logger,
		metrics:        m,
		maxQuestionLen: maxQuestionLen,
		sampleSize:     sampleSize,
	}, nil
}

// Ask answers a free-text question about a member. Only an over-long
// question or an unreachable provider with nothing cached is an error; every
// other outcome is a determinate answer.
func (s *AskService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	logger := logging.FromContext(ctx, s.logger)

	question := strings.TrimSpace(in.Question)
	if utf8.RuneCountInString(question) > s.maxQuestionLen {
		return AskOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}
	if question == "" {
		s.metrics.ObserveResolution(members.NotFound.String())
		s.metrics.ObserveAnswer(metrics.SourceNotFound)
		return AskOutput{Answer: AnswerUnknownMember, Resolution: members.NotFound.String()}, nil
	}

	snap, err := s.snapshot(ctx, logger)
	if err != nil {
		s.metrics.ObserveAnswer(metrics.SourceUnavailable)
		return AskOutput{Answer: AnswerUnavailable}, err
	}
	if len(snap.Records) == 0 {
		s.metrics.ObserveAnswer(metrics.SourceNotFound)
		return AskOutput{Answer: AnswerNoRecords, Resolution: members.NotFound.String()}, nil
	}

	res := members.Resolve(question, snap.Index)
	s.metrics.ObserveResolution(res.Outcome.String())

	if res.Outcome == members.NotFound {
		s.metrics.ObserveAnswer(metrics.SourceNotFound)
		logger.Info("member not found", zap.String("queried", res.Queried))
		return AskOutput{
			Answer:     memberNotFoundAnswer(res.Queried),
			Resolution: res.Outcome.String(),
		}, nil
	}

	qt := questions.Classify(question)
	s.metrics.ObserveQuestion(qt.String())

	req := questions.Request{Question: question, Member: res.Name, Messages: res.Messages}
	body, evidence := questions.Extract(qt, req)
	source := metrics.SourceExtractor
	if !evidence {
		body = questions.Fallback(req)
		source = metrics.SourceFallback
	}
	s.metrics.ObserveAnswer(source)

	if res.Outcome == members.Suggested {
		body = suggestedAnswer(res.Queried, res.Name, body)
	}

	logger.Info("question answered",
		zap.String("resolution", res.Outcome.String()),
		zap.String("rule", res.Rule),
		zap.String("member", res.Name),
		zap.Float64("similarity", res.Similarity),
		zap.String("question_type", qt.String()),
		zap.String("source", source),
	)

	return AskOutput{
		Answer:       body,
		Member:       res.Name,
		Resolution:   res.Outcome.String(),
		QuestionType: qt.String(),
		Evidence:     evidence,
	}, nil
}

// MessagesSample returns the first raw provider items, exactly as received.
func (s *AskService) MessagesSample(ctx context.Context) ([]json.RawMessage, error) {
	snap, err := s.snapshot(ctx, logging.FromContext(ctx, s.logger))
	if err != nil {
		return nil, err
	}
	return snap.Raw.Sample(s.sampleSize), nil
}

// MemberNames lists every known member with their message count, in
// first-seen order.
func (s *AskService) MemberNames(ctx context.Context) ([]domain.MemberSummary, error) {
	snap, err := s.snapshot(ctx, logging.FromContext(ctx, s.logger))
	if err != nil {
		return nil, err
	}
	return snap.Index.Summaries(), nil
}

func (s *AskService) snapshot(ctx context.Context, logger *zap.Logger) (*snapshot.Snapshot, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		if status, ok := upstreamStatusCode(err); ok {
			fields = append(fields, zap.Int("upstream_status", status))
		}
		logger.Error("member data unavailable", fields...)
		return nil, newError(ErrorProviderUnavailable, "provider_fetch_failed", err)
	}
	if snap == nil || snap.Index == nil {
		return nil, newError(ErrorInternal, "snapshot_missing", nil)
	}
	return snap, nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
