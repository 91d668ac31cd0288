package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/matside-backend/internal/data/repos"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/paymentlock"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/pricing"
	"github.com/yungbote/matside-backend/internal/services"
	"github.com/yungbote/matside-backend/internal/temporalx/ordersync"
	"github.com/yungbote/matside-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Locks         *paymentlock.Locker
	Payments      services.PaymentService
	Webhooks      services.WebhookService
	Orders        services.OrderSyncService
	Registrations services.RegistrationService
	Dispatcher    services.OrderDispatcher

	// TemporalWorker is nil when Temporal is not configured; orders then sync inline.
	TemporalWorker *temporalworker.Runner
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet repos.Set,
	clients Clients,
	stores Stores,
	catalog *pricing.Catalog,
	metrics *observability.Metrics,
) (Services, error) {
	log.Info("Wiring services...")

	locks := paymentlock.New(stores.Locks, log)
	notifier := services.NewEmailNotifier(log, clients.SendGrid)

	var (
		orderOpts []services.OrderSyncOption
		durable   *ordersync.Dispatcher
	)
	if clients.Temporal != nil {
		d, err := ordersync.NewDispatcher(log, clients.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			return Services{}, fmt.Errorf("init order dispatcher: %w", err)
		}
		durable = d
		orderOpts = append(orderOpts, services.WithDispatcher(d))
	}
	orders := services.NewOrderSyncService(log, reposet.Registrations, clients.Shopify, notifier, metrics, orderOpts...)

	var dispatcher services.OrderDispatcher = services.NewInlineDispatcher(orders)
	if durable != nil {
		dispatcher = durable
	}

	webhooks, err := services.NewWebhookService(db, log, reposet.Registrations, reposet.WebhookEvents, locks, clients.Stripe, catalog, dispatcher, metrics)
	if err != nil {
		return Services{}, fmt.Errorf("init webhook service: %w", err)
	}

	out := Services{
		Locks:         locks,
		Payments:      services.NewPaymentService(log, reposet.Registrations, locks, clients.Stripe, catalog, metrics, cfg.Currency),
		Webhooks:      webhooks,
		Orders:        orders,
		Registrations: services.NewRegistrationService(log, reposet.Registrations),
		Dispatcher:    dispatcher,
	}

	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, clients.Temporal, cfg.Temporal, orders)
		if err != nil {
			webhooks.Close()
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
	}
	return out, nil
}
