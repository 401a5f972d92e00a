package view

import (
	"errors"
	"fmt"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/realtime"
)

var (
	// ErrUnknownKind is returned for a view name we do not serve.
	ErrUnknownKind = errors.New("unknown view kind")
	// ErrForbidden is returned when a farmer asks for a fleet-wide view.
	ErrForbidden = errors.New("view requires the admin role")
	// ErrClosed is returned by Acquire after the registry shut down.
	ErrClosed = errors.New("view registry closed")
)

// Kind names one consuming screen.
type Kind string

const (
	KindDashboard    Kind = "dashboard"
	KindFeeding      Kind = "feeding"
	KindHealth       Kind = "health"
	KindWaterQuality Kind = "water-quality"
	KindAdmin        Kind = "admin"
)

// Kinds lists every view kind.
var Kinds = []Kind{KindDashboard, KindFeeding, KindHealth, KindWaterQuality, KindAdmin}

var allTables = []realtime.Table{
	realtime.TablePonds,
	realtime.TableFeedingSchedules,
	realtime.TableHealthRecords,
	realtime.TableWaterQualityLogs,
}

// ParseKind resolves a view name from a URL.
func ParseKind(raw string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Tables returns the collections the view subscribes to.
func (k Kind) Tables() []realtime.Table {
	switch k {
	case KindFeeding:
		return []realtime.Table{realtime.TablePonds, realtime.TableFeedingSchedules}
	case KindHealth:
		return []realtime.Table{realtime.TablePonds, realtime.TableHealthRecords}
	case KindWaterQuality:
		return []realtime.Table{realtime.TablePonds, realtime.TableWaterQualityLogs}
	default:
		return allTables
	}
}

// Allowed reports whether the session may mount the view.
func (k Kind) Allowed(s models.Session) bool {
	return k != KindAdmin || s.IsAdmin()
}
