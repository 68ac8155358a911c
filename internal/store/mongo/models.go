package mongo

import "github.com/MrSnakeDoc/multisite/internal/domain"

type siteModel struct {
	ID          string `bson:"_id"`
	UID         string `bson:"uid"`
	DisplayName string `bson:"displayName"`
	Hostname    string `bson:"hostname"`
	Active      bool   `bson:"active"`
}

func toModel(s *domain.Site) *siteModel {
	return &siteModel{
		ID:          s.ID,
		UID:         s.UID,
		DisplayName: s.DisplayName,
		Hostname:    s.Hostname,
		Active:      s.Active,
	}
}

func fromModel(m *siteModel) *domain.Site {
	return &domain.Site{
		ID:          m.ID,
		UID:         m.UID,
		DisplayName: m.DisplayName,
		Hostname:    m.Hostname,
		Active:      m.Active,
	}
}
