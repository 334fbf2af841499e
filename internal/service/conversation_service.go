package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinebot-go/internal/config"
	"cinebot-go/internal/model"
	"cinebot-go/internal/presenter"
	"cinebot-go/pkg/log"
	"cinebot-go/pkg/metrics"
	"cinebot-go/pkg/textnorm"
)

// DefaultUser identifies requests that carry no user.
const DefaultUser = "default"

// stepUnknown labels turns whose session could not be loaded.
const stepUnknown model.Step = "unknown"

const (
	replyGreet              = "Oi! Qual tipo de filme você está procurando?"
	replyGenreNotUnderstood = "Hmm... não entendi o gênero. Pode tentar com outras palavras?"
	replyGenreNotFound      = "Gênero '%s' não encontrado na base de dados."
	replyFirstBatch         = "Beleza! Encontrei alguns filmes de *%s*:<br><br>%s<br><br>Quer mais sugestões? (sim/não)"
	replyMore               = "Aqui vão mais filmes de *%s*:<br><br>%s<br><br>Quer mais sugestões?"
	replyEmpty              = "Não encontrei recomendações de *%s* agora. Quer tentar de novo? (sim/não)"
	replyClosing            = "Ok! Espero que goste dos filmes :)"
	replyRegreet            = "Oi de novo! Qual tipo de filme você quer agora?"
	replyReprompt           = "Não entendi. Quer mais sugestões? (sim/não)"
	replyClassifierDown     = "Estou com dificuldade para entender agora. Tente novamente em instantes."
	replyProviderDown       = "Não consegui buscar filmes agora. Tente novamente mais tarde."
	replyUnknown            = "Desculpe, não entendi. Pode repetir?"
)

// TurnPublisher receives an event for every completed turn.
type TurnPublisher interface {
	PublishTurn(ctx context.Context, e model.TurnEvent) error
}

// ConversationOptions are the policies of the conversation engine.
type ConversationOptions struct {
	// MinConfidence rejects classifications scoring below it; 0 disables.
	MinConfidence       float64
	RecommendationCount int
	ExcludeRepeats      bool
	UnclearPolicy       string
	// Events is optional.
	Events TurnPublisher
}

// OptionsFromConfig maps the conversation section of the config.
func OptionsFromConfig(cfg config.ConversationConfig) ConversationOptions {
	return ConversationOptions{
		MinConfidence:       cfg.MinConfidence,
		RecommendationCount: cfg.RecommendationCount,
		ExcludeRepeats:      cfg.ExcludeRepeats,
		UnclearPolicy:       cfg.UnclearPolicy,
	}
}

// ConversationService drives the per-user recommendation dialogue.
type ConversationService interface {
	// HandleMessage runs one turn. It always returns a reply.
	HandleMessage(ctx context.Context, userID, message string) model.ChatReply
	Session(ctx context.Context, userID string) (model.Session, error)
	// Reset drops the session so the next turn starts with a greeting.
	Reset(ctx context.Context, userID string) error
}

type conversationService struct {
	sessions    *SessionManager
	classifier  GenreClassifier
	recommender RecommendationService
	presenter   *presenter.Presenter
	opts        ConversationOptions
}

// NewConversationService wires the conversation engine.
func NewConversationService(sessions *SessionManager, classifier GenreClassifier, recommender RecommendationService, p *presenter.Presenter, opts ConversationOptions) ConversationService {
	if opts.RecommendationCount <= 0 {
		opts.RecommendationCount = DefaultRecommendationCount
	}
	if opts.UnclearPolicy == "" {
		opts.UnclearPolicy = config.UnclearPolicyClose
	}
	return &conversationService{
		sessions:    sessions,
		classifier:  classifier,
		recommender: recommender,
		presenter:   p,
		opts:        opts,
	}
}

// turn carries the result of one state transition out of the session update.
type turn struct {
	reply   string
	outcome string
}

func (s *conversationService) HandleMessage(ctx context.Context, userID, message string) model.ChatReply {
	userID = normalizeUser(userID)
	msg := textnorm.Normalize(message)

	var t turn
	startStep := stepUnknown
	session, err := s.sessions.Update(ctx, userID, func(sess *model.Session) (bool, error) {
		startStep = sess.Step
		return s.step(ctx, sess, msg, &t), nil
	})
	if err != nil {
		log.Errorf("[ConversationService] session update failed, user: %s, error: %v", userID, err)
		t = turn{reply: replyUnknown, outcome: "store_error"}
	}

	metrics.ConversationTurns.WithLabelValues(string(startStep), t.outcome).Inc()
	log.Infow("[ConversationService] turn",
		"user", userID,
		"from", startStep,
		"to", session.Step,
		"genre", session.Genre,
		"outcome", t.outcome,
	)
	s.publish(ctx, userID, startStep, session, t.outcome)
	return model.ChatReply{Reply: t.reply, Step: session.Step, Genre: session.Genre}
}

func (s *conversationService) publish(ctx context.Context, userID string, from model.Step, session model.Session, outcome string) {
	if s.opts.Events == nil {
		return
	}
	e := model.TurnEvent{
		User:      userID,
		From:      from,
		To:        session.Step,
		Genre:     session.Genre,
		Outcome:   outcome,
		Timestamp: time.Now(),
	}
	if outcome == "recommended" || outcome == "recommended_more" {
		for _, m := range session.LastRecommendations {
			e.MovieIDs = append(e.MovieIDs, m.ID)
		}
	}
	if err := s.opts.Events.PublishTurn(ctx, e); err != nil {
		log.Warnf("[ConversationService] failed to publish turn event: %v", err)
	}
}

func (s *conversationService) Session(ctx context.Context, userID string) (model.Session, error) {
	return s.sessions.Snapshot(ctx, normalizeUser(userID))
}

func (s *conversationService) Reset(ctx context.Context, userID string) error {
	userID = normalizeUser(userID)
	if err := s.sessions.Reset(ctx, userID); err != nil {
		return err
	}
	log.Infof("[ConversationService] session reset, user: %s", userID)
	return nil
}

func normalizeUser(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DefaultUser
	}
	return userID
}

// step applies one transition to sess and reports whether it must be stored.
func (s *conversationService) step(ctx context.Context, sess *model.Session, msg string, t *turn) bool {
	switch sess.Step {
	case model.StepGreet:
		sess.Step = model.StepAskGenre
		*t = turn{reply: replyGreet, outcome: "greeted"}
		return true
	case model.StepAskGenre:
		return s.askGenre(ctx, sess, msg, t)
	case model.StepRecommend:
		return s.recommend(ctx, sess, msg, t)
	case model.StepDone:
		sess.Restart()
		*t = turn{reply: replyRegreet, outcome: "restarted"}
		return true
	default:
		*t = turn{reply: replyUnknown, outcome: "unknown_step"}
		return false
	}
}

func (s *conversationService) askGenre(ctx context.Context, sess *model.Session, msg string, t *turn) bool {
	cls, err := s.classifier.Classify(ctx, msg)
	if err != nil {
		log.Errorf("[ConversationService] classification failed: %v", err)
		*t = turn{reply: replyClassifierDown, outcome: "classification_unavailable"}
		return false
	}
	if cls.Found() {
		metrics.ClassificationScore.Observe(cls.Score)
	}
	if !cls.Found() || (s.opts.MinConfidence > 0 && cls.Score < s.opts.MinConfidence) {
		*t = turn{reply: replyGenreNotUnderstood, outcome: "not_understood"}
		return false
	}

	genreID, err := s.recommender.ResolveGenreID(ctx, cls.Genre)
	if errors.Is(err, ErrGenreNotFound) {
		*t = turn{reply: fmt.Sprintf(replyGenreNotFound, cls.Genre), outcome: "genre_not_found"}
		return false
	}
	if err != nil {
		log.Errorf("[ConversationService] resolving genre %q failed: %v", cls.Genre, err)
		*t = turn{reply: replyProviderDown, outcome: "provider_unavailable"}
		return false
	}

	recs, err := s.recommender.FetchByGenre(ctx, genreID, s.opts.RecommendationCount, nil)
	if err != nil && !errors.Is(err, ErrEmptyResult) {
		log.Errorf("[ConversationService] fetching genre %q failed: %v", cls.Genre, err)
		*t = turn{reply: replyProviderDown, outcome: "provider_unavailable"}
		return false
	}

	sess.Step = model.StepRecommend
	sess.Genre = cls.Genre
	sess.GenreID = genreID
	sess.ShownIDs = nil
	if errors.Is(err, ErrEmptyResult) {
		sess.LastRecommendations = []model.Movie{}
		*t = turn{reply: fmt.Sprintf(replyEmpty, cls.Genre), outcome: "empty_result"}
		return true
	}
	sess.LastRecommendations = recs.Movies
	if s.opts.ExcludeRepeats {
		sess.RememberShown(recs.Movies)
	}
	*t = turn{reply: fmt.Sprintf(replyFirstBatch, cls.Genre, s.presenter.Render(recs.Movies)), outcome: "recommended"}
	return true
}

func (s *conversationService) recommend(ctx context.Context, sess *model.Session, msg string, t *turn) bool {
	intent := DetectIntent(msg)
	if intent == IntentUnclear && s.opts.UnclearPolicy == config.UnclearPolicyReprompt {
		*t = turn{reply: replyReprompt, outcome: "reprompted"}
		return true
	}
	if intent != IntentAffirmative {
		sess.Step = model.StepDone
		*t = turn{reply: replyClosing, outcome: "closed"}
		return true
	}

	genreID := sess.GenreID
	if genreID == 0 {
		id, err := s.recommender.ResolveGenreID(ctx, sess.Genre)
		if err != nil {
			log.Errorf("[ConversationService] resolving stored genre %q failed: %v", sess.Genre, err)
			*t = turn{reply: replyProviderDown, outcome: "provider_unavailable"}
			return false
		}
		genreID = id
		sess.GenreID = id
	}

	var exclude []int64
	if s.opts.ExcludeRepeats {
		exclude = sess.ShownIDs
	}
	recs, err := s.recommender.FetchByGenre(ctx, genreID, s.opts.RecommendationCount, exclude)
	if errors.Is(err, ErrEmptyResult) {
		sess.LastRecommendations = []model.Movie{}
		*t = turn{reply: fmt.Sprintf(replyEmpty, sess.Genre), outcome: "empty_result"}
		return true
	}
	if err != nil {
		log.Errorf("[ConversationService] fetching more for %q failed: %v", sess.Genre, err)
		*t = turn{reply: replyProviderDown, outcome: "provider_unavailable"}
		return false
	}

	if recs.Reset {
		sess.ShownIDs = nil
	}
	sess.LastRecommendations = recs.Movies
	if s.opts.ExcludeRepeats {
		sess.RememberShown(recs.Movies)
	}
	*t = turn{reply: fmt.Sprintf(replyMore, sess.Genre, s.presenter.Render(recs.Movies)), outcome: "recommended_more"}
	return true
}
