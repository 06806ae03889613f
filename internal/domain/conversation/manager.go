package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aftercare/aftercare/internal/domain/alert"
	"github.com/aftercare/aftercare/internal/domain/followup"
	"github.com/aftercare/aftercare/internal/domain/patient"
	"github.com/aftercare/aftercare/internal/domain/triage"
	"github.com/aftercare/aftercare/internal/platform/classifier"
	"github.com/aftercare/aftercare/internal/platform/db"
	"github.com/aftercare/aftercare/internal/platform/messenger"
)

// errDuplicateDelivery means another delivery of the same message id won
// the processed-message claim while this one was in flight.
var errDuplicateDelivery = errors.New("message already processed")

// Canned patient-facing replies.
const (
	replyUnregistered = "Olá! Não encontramos seu cadastro. Se você é paciente, confirme seu telefone com a clínica."
	replyNoFollowUp   = "Olá! Você não tem nenhum questionário pendente no momento. Se estiver com sintomas, entre em contato com seu médico."
	replyConfirmation = "Olá, %s! Temos um acompanhamento do seu pós-operatório (D+%d). Podemos fazer algumas perguntas rápidas agora? Responda SIM para começar."
	replyFallback     = "Recebemos sua mensagem. Se estiver com sintomas preocupantes, procure seu médico ou o pronto-socorro."
)

// Manager owns the per-patient conversation state machine. All inbound
// message processing funnels through HandleInbound.
type Manager struct {
	patients   *patient.Service
	followups  *followup.Service
	triage     *triage.Service
	dispatcher *alert.Dispatcher
	messenger  messenger.Messenger
	classifier classifier.Classifier
	states     StateRepository
	processed  ProcessedMessageRepository
	locks      *keyedMutex
	logger     zerolog.Logger
}

func NewManager(
	patients *patient.Service,
	followups *followup.Service,
	triageSvc *triage.Service,
	dispatcher *alert.Dispatcher,
	msgr messenger.Messenger,
	cls classifier.Classifier,
	states StateRepository,
	processed ProcessedMessageRepository,
	logger zerolog.Logger,
) *Manager {
	return &Manager{
		patients:   patients,
		followups:  followups,
		triage:     triageSvc,
		dispatcher: dispatcher,
		messenger:  msgr,
		classifier: cls,
		states:     states,
		processed:  processed,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// HandleInbound processes one patient message end to end: dedupe,
// patient resolution, state transition, triage and alerting. The whole
// transition commits in one transaction together with the
// processed-message claim, so an error return means nothing was
// advanced and the message may be redelivered safely.
func (m *Manager) HandleInbound(ctx context.Context, msg InboundMessage) error {
	done, err := m.processed.AlreadyProcessed(ctx, msg.MessageID)
	if err != nil {
		return fmt.Errorf("check processed message: %w", err)
	}
	if done {
		m.logger.Info().Str("message_id", msg.MessageID).Msg("duplicate delivery, skipping")
		return nil
	}

	p, err := m.patients.ResolveByPhone(ctx, msg.FromPhone)
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			// A named outcome, not a failure.
			m.reply(ctx, msg.FromPhone, replyUnregistered)
			if _, err := m.processed.MarkProcessed(ctx, msg.MessageID); err != nil {
				return fmt.Errorf("mark message processed: %w", err)
			}
			return nil
		}
		return fmt.Errorf("resolve patient: %w", err)
	}

	m.locks.Lock(p.ID)
	defer m.locks.Unlock(p.ID)

	// A concurrent delivery of the same id may have finished while this
	// one waited for the patient lock.
	done, err = m.processed.AlreadyProcessed(ctx, msg.MessageID)
	if err != nil {
		return fmt.Errorf("check processed message: %w", err)
	}
	if done {
		m.logger.Info().Str("message_id", msg.MessageID).Msg("duplicate delivery, skipping")
		return nil
	}

	err = db.RunInTx(ctx, func(ctx context.Context) error {
		return m.transition(ctx, p, msg)
	})
	if err != nil {
		if errors.Is(err, errDuplicateDelivery) {
			m.logger.Info().Str("message_id", msg.MessageID).Msg("duplicate delivery, skipping")
			return nil
		}
		return err
	}

	if err := m.messenger.MarkRead(ctx, msg.MessageID); err != nil {
		m.logger.Warn().Err(err).Str("message_id", msg.MessageID).Msg("mark read failed")
	}
	return nil
}

// transition runs one state-machine step. The caller wraps it in a
// transaction: the state row, follow-up status, assessment and the
// processed-message claim commit together or not at all.
func (m *Manager) transition(ctx context.Context, p *patient.Patient, msg InboundMessage) error {
	state, err := m.states.GetOrCreate(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load conversation state: %w", err)
	}

	switch state.Phase {
	case PhaseIdle, PhaseCompleted:
		err = m.handleIdle(ctx, p, state)
	case PhaseAwaitingConfirmation:
		err = m.handleAwaitingConfirmation(ctx, p, state, msg)
	case PhaseCollectingAnswers:
		err = m.handleCollectingAnswers(ctx, p, state, msg)
	default:
		err = fmt.Errorf("unknown conversation phase %q", state.Phase)
	}
	if err != nil {
		return err
	}

	state.LastActivityAt = time.Now()
	if err := m.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	claimed, err := m.processed.MarkProcessed(ctx, msg.MessageID)
	if err != nil {
		return fmt.Errorf("mark message processed: %w", err)
	}
	if !claimed {
		return errDuplicateDelivery
	}
	return nil
}

// handleIdle covers first contact in a cycle: either invite the patient
// to answer the active follow-up, or tell them nothing is pending.
func (m *Manager) handleIdle(ctx context.Context, p *patient.Patient, state *State) error {
	f, err := m.followups.ActiveForPatient(ctx, p.ID)
	if err != nil {
		if errors.Is(err, followup.ErrNoActiveFollowUp) {
			m.reply(ctx, p.Phone, replyNoFollowUp)
			return nil
		}
		return fmt.Errorf("load active follow-up: %w", err)
	}

	if f.Status == followup.StatusPending {
		if _, err := m.followups.MarkSent(ctx, f.ID); err != nil {
			return fmt.Errorf("mark follow-up sent: %w", err)
		}
	}

	if err := m.send(ctx, p.Phone, fmt.Sprintf(replyConfirmation, firstName(p.FullName), f.DayOffset)); err != nil {
		return err
	}
	state.Phase = PhaseAwaitingConfirmation
	state.FollowUpID = &f.ID
	state.QuestionIdx = 0
	state.Answers = map[string]string{}
	return nil
}

func (m *Manager) handleAwaitingConfirmation(ctx context.Context, p *patient.Patient, state *State, msg InboundMessage) error {
	if !IsAffirmative(msg.Text) {
		// Not a confirmation: hand the text to the classifier as a
		// general message, state unchanged.
		return m.handleFreeText(ctx, p, state, msg.Text)
	}

	f, err := m.activeFollowUp(ctx, state)
	if err != nil {
		return err
	}
	questions := followup.QuestionsFor(f.SurgeryType, f.DayOffset)
	if len(questions) == 0 {
		m.reply(ctx, p.Phone, replyNoFollowUp)
		state.Phase = PhaseIdle
		return nil
	}

	if err := m.send(ctx, p.Phone, questions[0].Text); err != nil {
		return err
	}
	state.Phase = PhaseCollectingAnswers
	state.QuestionIdx = 0
	state.Answers = map[string]string{}
	return nil
}

func (m *Manager) handleCollectingAnswers(ctx context.Context, p *patient.Patient, state *State, msg InboundMessage) error {
	f, err := m.activeFollowUp(ctx, state)
	if err != nil {
		return err
	}
	questions := followup.QuestionsFor(f.SurgeryType, f.DayOffset)
	if state.QuestionIdx >= len(questions) {
		return fmt.Errorf("question pointer %d out of range for %s day %d", state.QuestionIdx, f.SurgeryType, f.DayOffset)
	}

	state.Answers[questions[state.QuestionIdx].Key] = msg.Text

	if state.QuestionIdx+1 < len(questions) {
		next := questions[state.QuestionIdx+1]
		if err := m.send(ctx, p.Phone, next.Text); err != nil {
			return err
		}
		state.QuestionIdx++
		return nil
	}

	return m.completeQuestionnaire(ctx, p, state, f, questions)
}

// completeQuestionnaire runs triage over the accumulated answers,
// closes the follow-up and escalates if needed. Every step is
// convergent: a redelivered final answer reuses the persisted
// assessment and finds the follow-up already responded, so retrying
// after a partial failure always lands on the same outcome. The alert
// enqueue comes last because it cannot be rolled back.
func (m *Manager) completeQuestionnaire(ctx context.Context, p *patient.Patient, state *State, f *followup.FollowUp, questions []followup.Question) error {
	answerSet := BuildAnswerSet(questions, state.Answers)

	assessment, err := m.triage.Assess(ctx, triage.AssessInput{
		PatientID:   p.ID,
		PatientName: p.FullName,
		FollowUpID:  f.ID,
		SurgeryType: f.SurgeryType,
		DayOffset:   f.DayOffset,
		Answers:     answerSet,
		RawAnswers:  state.Answers,
	})
	if err != nil {
		return fmt.Errorf("assess questionnaire: %w", err)
	}

	if _, err := m.followups.MarkResponded(ctx, f.ID); err != nil {
		return fmt.Errorf("mark follow-up responded: %w", err)
	}
	if err := m.send(ctx, p.Phone, assessment.ResponseText); err != nil {
		return err
	}
	if err := m.dispatcher.Dispatch(ctx, assessment, p, f.SurgeryType, state.Answers); err != nil {
		return fmt.Errorf("dispatch alert: %w", err)
	}

	state.Phase = PhaseCompleted
	m.logger.Info().
		Str("patient_id", p.ID.String()).
		Str("follow_up_id", f.ID.String()).
		Str("final_level", assessment.FinalLevel.String()).
		Msg("questionnaire completed")
	return nil
}

// handleFreeText forwards an unstructured message to the classifier for
// an empathetic reply. The conversation state is not advanced.
func (m *Manager) handleFreeText(ctx context.Context, p *patient.Patient, state *State, text string) error {
	reply := replyFallback
	if m.classifier != nil {
		result, err := m.classifier.Classify(ctx, classifier.Input{
			PatientName: p.FullName,
			Answers:     map[string]string{"free_text": text},
		})
		if err != nil {
			m.logger.Warn().Err(err).
				Str("patient_id", p.ID.String()).
				Msg("classifier unavailable for free-text reply")
		} else if result.PatientReply != "" {
			reply = result.PatientReply
		}
	}
	return m.send(ctx, p.Phone, reply)
}

func (m *Manager) activeFollowUp(ctx context.Context, state *State) (*followup.FollowUp, error) {
	if state.FollowUpID == nil {
		return nil, fmt.Errorf("conversation in phase %s without a follow-up reference", state.Phase)
	}
	f, err := m.followups.GetFollowUp(ctx, *state.FollowUpID)
	if err != nil {
		return nil, fmt.Errorf("load follow-up: %w", err)
	}
	return f, nil
}

func (m *Manager) send(ctx context.Context, phone, text string) error {
	if err := m.messenger.Send(ctx, phone, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// reply is best-effort: used on paths where the outcome is already
// decided and a send failure must not fail the request.
func (m *Manager) reply(ctx context.Context, phone, text string) {
	if err := m.messenger.Send(ctx, phone, text); err != nil {
		m.logger.Warn().Err(err).Msg("canned reply failed")
	}
}

func firstName(full string) string {
	for i, r := range full {
		if r == ' ' {
			return full[:i]
		}
	}
	return full
}
