package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// AMQPQueue publishes alerts to a durable RabbitMQ queue and consumes
// them with manual acknowledgement. Failed deliveries are requeued with
// an x-retry-count header until the retry budget is spent.
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queueName  string
	send       SendFunc
	maxRetries int
	logger     zerolog.Logger
}

func NewAMQPQueue(url, queueName string, send SendFunc, maxRetries int, logger zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	q := &AMQPQueue{
		conn:       conn,
		ch:         ch,
		queueName:  queueName,
		send:       send,
		maxRetries: maxRetries,
		logger:     logger,
	}
	if err := q.startConsumer(); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}

func (q *AMQPQueue) Enqueue(_ context.Context, a *Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return q.ch.Publish(
		"",          // default exchange
		q.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (q *AMQPQueue) startConsumer() error {
	msgs, err := q.ch.Consume(
		q.queueName,
		"",    // consumer tag
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	go q.consume(msgs)
	return nil
}

func (q *AMQPQueue) consume(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		var a Alert
		if err := json.Unmarshal(d.Body, &a); err != nil {
			q.logger.Error().Err(err).Msg("invalid alert payload, dropping")
			d.Ack(false)
			continue
		}

		if err := q.send(context.Background(), &a); err != nil {
			retryCount := 0
			if v, ok := d.Headers["x-retry-count"].(int32); ok {
				retryCount = int(v)
			}
			if retryCount < q.maxRetries {
				q.logger.Warn().Err(err).
					Str("assessment_id", a.AssessmentID.String()).
					Int("retry_count", retryCount).
					Msg("alert delivery failed, requeueing")
				q.republish(d.Body, retryCount+1)
				d.Ack(false)
				continue
			}
			q.logger.Error().Err(err).
				Str("assessment_id", a.AssessmentID.String()).
				Str("patient_id", a.PatientID.String()).
				Msg("alert permanently failed after all retries, manual intervention required")
			d.Ack(false)
			continue
		}

		q.logger.Info().
			Str("assessment_id", a.AssessmentID.String()).
			Str("level", a.Level.String()).
			Msg("physician alert delivered")
		d.Ack(false)
	}
}

func (q *AMQPQueue) republish(body []byte, retryCount int) {
	err := q.ch.Publish("", q.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"x-retry-count": int32(retryCount)},
		Body:         body,
	})
	if err != nil {
		q.logger.Error().Err(err).Msg("failed to requeue alert")
	}
}

func (q *AMQPQueue) Close() error {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
