package worker

import (
	"github.com/pioneer-isp/helpdesk/internal/events"
	"github.com/pioneer-isp/helpdesk/internal/service"
)

// EventSink receives every committed ticket event.
type EventSink interface {
	Register(dispatcher events.Dispatcher)
}

// StartNotificationWorker registers notification handlers and any extra sinks
// such as the Kafka publisher.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, sinks ...EventSink) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	for _, sink := range sinks {
		if sink != nil {
			sink.Register(dispatcher)
		}
	}
}
