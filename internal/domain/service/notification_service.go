package service

import (
	"context"
)

// AdminNotifier pushes operational notices to administrator devices.
type AdminNotifier interface {
	// NotifyAdmins sends a push notification to every administrator device.
	NotifyAdmins(ctx context.Context, title, body string, data map[string]string) error
}
