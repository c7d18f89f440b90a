package yatgbot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yabackoff"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

const (
	backoffMultiplier = 2
	finalAckTimeout   = 5 * time.Second
)

// poller is the long-polling transport of one bot.
type poller struct {
	botID      int64
	api        RemoteAPI
	offsets    yatgstorage.OffsetStorage
	dispatcher *Dispatcher
	config     config.PollingConfig
	log        yalogger.Logger
}

// run polls until ctx is done. Events are dispatched one by one in offset
// order and acknowledged after their dispatch ended. Only configuration
// errors are returned; transport errors are retried with backoff.
func (p *poller) run(ctx context.Context) yaerrors.Error {
	if err := p.api.DeleteWebhook(ctx, false); err != nil {
		if configErr := asConfigurationError(err, "failed to delete webhook"); configErr != nil {
			return configErr
		}

		p.log.Warnf("failed to delete webhook before polling: %v", err)
	}

	offset, err := p.offsets.LoadOffset(ctx, p.botID)
	if err != nil {
		p.log.Warnf("failed to load offset, starting from the oldest pending update: %v", err)

		offset = 0
	}

	acked := offset

	backoff := yabackoff.NewExponential(p.config.ErrorCooldown, backoffMultiplier, p.config.MaxErrorCooldown)

	p.log.Infof("polling started at offset %d", offset)

	for ctx.Err() == nil {
		updates, err := p.api.GetUpdates(ctx, yatgclient.GetUpdatesParams{
			Offset:         offset,
			Limit:          p.config.Limit,
			Timeout:        p.config.Timeout,
			AllowedUpdates: p.config.AllowedUpdates,
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}

			if configErr := asConfigurationError(err, "failed to get updates"); configErr != nil {
				return configErr
			}

			if !p.cooldown(ctx, backoff, err) {
				break
			}

			continue
		}

		backoff.Reset()

		for _, raw := range updates {
			if raw.Offset < offset {
				p.log.Debugf("dropping stale update %d, cursor at %d", raw.Offset, offset)

				continue
			}

			if ctx.Err() != nil {
				break
			}

			p.dispatcher.Dispatch(context.WithoutCancel(ctx), raw)

			offset = raw.Offset + 1

			if err := p.offsets.StoreOffset(context.WithoutCancel(ctx), p.botID, offset); err != nil {
				p.log.Errorf("failed to store offset %d: %v", offset, err)
			}
		}
	}

	if offset != acked {
		p.acknowledge(offset)
	}

	p.log.Infof("polling stopped at offset %d", offset)

	return nil
}

// cooldown sleeps after a failed poll and reports whether polling goes on.
func (p *poller) cooldown(ctx context.Context, backoff *yabackoff.Exponential, err yaerrors.Error) bool {
	if apiErr, ok := yatgclient.AsAPIError(err); ok && apiErr.IsFloodWait() && apiErr.RetryAfter > 0 {
		p.log.Warnf("flood wait, retrying in %s", apiErr.RetryAfter)

		timer := time.NewTimer(apiErr.RetryAfter)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		}
	}

	p.log.Errorf("failed to get updates, retrying in %s: %v", backoff.Current(), err)

	return backoff.WaitContext(ctx) == nil
}

// acknowledge confirms offset to the platform so the updates dispatched
// last are not redelivered to the next process.
func (p *poller) acknowledge(offset int64) {
	ctx, cancel := context.WithTimeout(context.Background(), finalAckTimeout)
	defer cancel()

	if _, err := p.api.GetUpdates(ctx, yatgclient.GetUpdatesParams{
		Offset: offset,
		Limit:  1,
	}); err != nil {
		p.log.Warnf("failed to acknowledge offset %d: %v", offset, err)
	}
}

// asConfigurationError returns a configuration error when err means the
// token was rejected, nil otherwise.
func asConfigurationError(err yaerrors.Error, msg string) yaerrors.Error {
	if apiErr, ok := yatgclient.AsAPIError(err); ok && apiErr.IsUnauthorized() {
		return yaerrors.FromError(
			http.StatusUnauthorized,
			fmt.Errorf("%w: %w: %w", ErrConfiguration, ErrInvalidToken, err),
			msg,
		)
	}

	return nil
}
