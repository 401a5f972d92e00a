package whatsapp

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/calc"
)

const helpText = `🐟 Assistant PondWatch
/ponds - état de vos étangs
/alerts - alertes qualité de l'eau
/feeding - alimentation du jour
/feed <étang> <kg> [aliment] - noter un repas
/water <étang> <°C> [pH] - noter un relevé
/health <étang> <sain|malade|critique> [symptômes] - noter un contrôle
/reset - nouvelle conversation
Vous pouvez aussi poser une question librement.`

const usageText = `Commande incomplète. Exemples:
/feed etangnord 2.5
/water etangnord 28 7.2
/health etangnord malade taches blanches`

const unknownNumberText = "Ce numéro n'est lié à aucun compte PondWatch. Ajoutez-le à votre profil pour utiliser l'assistant."

func formatPonds(metrics []aggregate.PondMetrics, fleet aggregate.FleetCounts) string {
	if len(metrics) == 0 {
		return "Aucun étang enregistré."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🐟 %d étangs (%d actifs), %d poissons\n", fleet.TotalPonds, fleet.ActivePonds, fleet.TotalFish)
	for _, m := range metrics {
		fmt.Fprintf(&b, "\n*%s* (%s)\n", m.Name, m.Status)
		fmt.Fprintf(&b, "Santé: %s | Qualité eau: %d/100 | Efficacité: %d/100\n", m.Health, m.WaterQualityIndex, m.Efficiency)
		fmt.Fprintf(&b, "Densité: %.1f/m² | Ration: %.2f kg/j | Récolte: %d j\n", m.StockingDensity, m.DailyFeedKg, m.HarvestDays)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAlerts(alerts aggregate.AlertSummary) string {
	if alerts.Count == 0 {
		return "✅ Aucune alerte : température et pH dans les normes."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %d étang(s) en alerte\n", alerts.Count)
	for _, a := range alerts.Ponds {
		var causes []string
		if a.Temperature {
			causes = append(causes, fmt.Sprintf("température hors %.0f-%.0f°C", calc.TemperatureOptimal.Min, calc.TemperatureOptimal.Max))
		}
		if a.PH {
			causes = append(causes, fmt.Sprintf("pH hors %.1f-%.1f", calc.PHOptimal.Min, calc.PHOptimal.Max))
		}
		fmt.Fprintf(&b, "- %s : %s\n", a.PondName, strings.Join(causes, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFeeding(today aggregate.FeedingSummary) string {
	if today.Total == 0 {
		return "Aucun repas programmé aujourd'hui."
	}
	return fmt.Sprintf("🍽️ Alimentation du jour\nRepas: %d (%d faits, %d en attente)\nQuantité: %.1f kg\nEfficacité: %.2f%%",
		today.Total, today.Completed, today.Pending, today.FeedKg, today.Efficiency)
}

// fleetSummary is the pond context given to the assistant.
func fleetSummary(metrics []aggregate.PondMetrics) string {
	var b strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&b, "- %s: status %s, health %s, water quality %d/100, density %.1f fish/m², %d days to harvest\n",
			m.Name, m.Status, m.Health, m.WaterQualityIndex, m.StockingDensity, m.HarvestDays)
	}
	return b.String()
}
