// Package main — Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Her handler, ihtiyaç duyduğu service interface'lerini constructor'dan alır.
// Handler'lar "thin" dir — sadece HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/smartnotify/handlers"
	"github.com/akinalp/smartnotify/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Thread       *handlers.ThreadHandler
	Notification *handlers.NotificationHandler
	Preference   *handlers.PreferenceHandler
	Stats        *handlers.StatsHandler
	WS           *ws.Handler
}

// initHandlers, tüm handler'ları service ve rate limiter dependency'leri ile oluşturur.
func initHandlers(svcs *Services, repos *Repositories, limiters *RateLimiters, hub *ws.Hub) *Handlers {
	return &Handlers{
		Auth:         handlers.NewAuthHandler(svcs.Auth, limiters.Login),
		Thread:       handlers.NewThreadHandler(svcs.Thread, svcs.Comment, limiters.Comment),
		Notification: handlers.NewNotificationHandler(svcs.Notification),
		Preference:   handlers.NewPreferenceHandler(svcs.Preference),
		Stats:        handlers.NewStatsHandler(repos.User),
		WS:           ws.NewHandler(hub, svcs.Auth),
	}
}
