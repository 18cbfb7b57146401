package elastic

import (
	"context"
	"fmt"

	"lifestyle-api/internal/client"
	"lifestyle-api/internal/models"
)

type profileDoc struct {
	UserID    string   `json:"user_id"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Location  string   `json:"location"`
	Bio       string   `json:"bio"`
	Photos    []string `json:"photos"`
	Interests []string `json:"interests"`
	Verified  bool     `json:"verified"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source profileDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ProfileRepository pages through the profile index in a stable order.
// No relevance scoring is applied.
type ProfileRepository struct {
	es    *client.ESClient
	index string
}

func NewProfileRepository(es *client.ESClient, index string) *ProfileRepository {
	return &ProfileRepository{es: es, index: index}
}

func (r *ProfileRepository) ListProfiles(ctx context.Context, viewerID string, offset, limit int) ([]models.Profile, error) {
	query := map[string]interface{}{
		"from": offset,
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must_not": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"user_id": viewerID}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"user_id": "asc"},
		},
	}

	res, err := r.es.Search(ctx, r.index, query)
	if err != nil {
		return nil, err
	}

	var body searchResponse
	if err := r.es.ParseResponse(res, &body); err != nil {
		return nil, fmt.Errorf("profile search failed: %w", err)
	}

	profiles := make([]models.Profile, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		d := hit.Source
		profiles = append(profiles, models.Profile{
			UserID:    d.UserID,
			Name:      d.Name,
			Age:       d.Age,
			Location:  d.Location,
			Bio:       d.Bio,
			Photos:    d.Photos,
			Interests: d.Interests,
			Verified:  d.Verified,
		})
	}
	return profiles, nil
}
