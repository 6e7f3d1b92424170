package facilities

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"parkwise/booking"
	"parkwise/db"
	"parkwise/models"
	"parkwise/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultRadiusKm = 5.0

// GetNearbyFacilities finds active facilities within a radius of the
// caller's position, annotates each with distance, live availability and
// operational status, and sorts by nearest distance, then highest
// availability, then lowest hourly rate.
func GetNearbyFacilities(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	radiusKm := defaultRadiusKm
	if v := r.URL.Query().Get("radius"); v != "" {
		if meters, err := strconv.ParseFloat(v, 64); err == nil && meters > 0 {
			radiusKm = meters / 1000
		}
	}

	cursor, err := db.FacilitiesCollection.Find(ctx, bson.M{"status": "active"})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching facilities")
		return
	}
	defer cursor.Close(ctx)

	var all []models.Facility
	if err := cursor.All(ctx, &all); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error decoding facilities")
		return
	}

	now := time.Now()
	results := make([]models.Facility, 0, len(all))
	for _, f := range all {
		dist := booking.HaversineKm(lat, lng, f.Location.Latitude, f.Location.Longitude)
		if dist > radiusKm {
			continue
		}

		free, err := booking.FacilityFreeSlots(ctx, f.FacilityID, now)
		if err != nil {
			free = 0
		}

		f.SecurityUsers = nil
		f.Distance = math.Round(dist*10) / 10
		f.AvailableSlots = free
		f.OperationalStatus = operationalStatus(f, free)
		results = append(results, f)
	}

	sortByProximity(results)

	utils.RespondWithJSON(w, http.StatusOK, results)
}

// sortByProximity orders search results by nearest distance, breaking
// ties by highest availability and then lowest hourly rate.
func sortByProximity(results []models.Facility) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		if results[i].AvailableSlots != results[j].AvailableSlots {
			return results[i].AvailableSlots > results[j].AvailableSlots
		}
		return results[i].Pricing.HourlyRate < results[j].Pricing.HourlyRate
	})
}

func operationalStatus(f models.Facility, free int) string {
	if f.TemporarilyClosed || f.Status != "active" {
		return "closed"
	}
	if free == 0 {
		return "full"
	}
	return "open"
}

func mongoReturnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
