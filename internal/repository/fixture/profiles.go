package fixture

import (
	"context"
	"sort"

	"lifestyle-api/internal/models"
)

// ProfileSource serves a fixed in-memory profile set ordered by user id
type ProfileSource struct {
	profiles []models.Profile
}

func NewProfileSource(profiles []models.Profile) *ProfileSource {
	sorted := append([]models.Profile(nil), profiles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })
	return &ProfileSource{profiles: sorted}
}

func (s *ProfileSource) ListProfiles(_ context.Context, viewerID string, offset, limit int) ([]models.Profile, error) {
	out := make([]models.Profile, 0, limit)
	skipped := 0
	for _, p := range s.profiles {
		if p.UserID == viewerID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

// DemoProfiles is the development data set
func DemoProfiles() []models.Profile {
	return []models.Profile{
		{UserID: "demo-0001", Name: "Alex & Jordan", Age: 34, Location: "Austin, TX", Bio: "Weekend travellers, always up for a tasting menu.", Photos: []string{"/img/demo/0001.jpg"}, Interests: []string{"travel", "food", "wine"}, Verified: true},
		{UserID: "demo-0002", Name: "Morgan", Age: 29, Location: "Denver, CO", Bio: "Climber and coffee snob.", Photos: []string{"/img/demo/0002.jpg"}, Interests: []string{"climbing", "coffee"}},
		{UserID: "demo-0003", Name: "Riley & Sam", Age: 41, Location: "Miami, FL", Bio: "Boat days and live music.", Photos: []string{"/img/demo/0003.jpg"}, Interests: []string{"boating", "music"}, Verified: true},
		{UserID: "demo-0004", Name: "Casey", Age: 37, Location: "Portland, OR", Bio: "Runner, reader, terrible cook.", Photos: []string{"/img/demo/0004.jpg"}, Interests: []string{"running", "books"}},
		{UserID: "demo-0005", Name: "Taylor & Drew", Age: 32, Location: "Chicago, IL", Bio: "New to the city and looking for friends.", Photos: []string{"/img/demo/0005.jpg"}, Interests: []string{"dancing", "art"}, Verified: true},
	}
}
