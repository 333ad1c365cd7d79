package services

import "context"

// Setting reads a local preference; missing keys read as empty
func (s *Service) Setting(ctx context.Context, key string) (string, error) {
	return s.db.GetSetting(ctx, key)
}

// SaveSetting stores a local preference
func (s *Service) SaveSetting(ctx context.Context, key, value string) error {
	return s.db.SetSetting(ctx, key, value)
}
