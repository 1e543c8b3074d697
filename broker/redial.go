package broker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// redialAMQP reconnects to url with exponential backoff, giving up once bo's
// elapsed-time budget is exhausted. A fresh backoff.ExponentialBackOff should
// be passed per call: this function mutates its internal clock as it retries.
func redialAMQP(url string, bo backoff.BackOff) (*amqp.Connection, error) {
	var conn *amqp.Connection
	err := backoff.Retry(func() error {
		c, dialErr := amqp.Dial(url)
		if dialErr != nil {
			return dialErr
		}
		conn = c
		return nil
	}, bo)
	return conn, err
}

// newReconnectBackoff builds the exponential-backoff policy used to redial a
// dropped AMQP connection: doubling delays up to 30s, retried for up to 5
// minutes before the watcher gives up and leaves the broker connectionless.
func newReconnectBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 5 * time.Minute
	return bo
}

// watchAMQPConnection blocks until conn's NotifyClose channel reports a
// non-nil error (a connection drop) or closes cleanly (an intentional Close),
// redialing with backoff in the former case. It returns the new connection,
// or nil once the connection closed cleanly or backoff gave up.
func watchAMQPConnection(ctx context.Context, conn *amqp.Connection, url string, log zerolog.Logger) *amqp.Connection {
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case err, ok := <-closeCh:
		if !ok || err == nil {
			return nil // intentional Close(); nothing to redial
		}
		log.Warn().Err(err).Msg("amqp connection dropped, reconnecting")
	case <-ctx.Done():
		return nil
	}

	newConn, err := redialAMQP(url, backoff.WithContext(newReconnectBackoff(), ctx))
	if err != nil {
		log.Error().Err(err).Msg("amqp reconnect gave up")
		return nil
	}
	log.Info().Msg("amqp connection reestablished")
	return newConn
}
