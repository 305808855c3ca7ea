package report

import "fmt"

// HeatmapCell is one geo × actor aggregation bucket, the shape the
// visualization layer consumes.
type HeatmapCell struct {
	GeoLocation string  `json:"geo_location"`
	Username    string  `json:"username"`
	Records     int     `json:"records"`
	TotalVolume float64 `json:"total_volume_mb"`
	Alerts      int     `json:"alerts"`
}

// Heatmap aggregates stored verdicts by geo_location and username,
// hottest buckets first.
func (s *Store) Heatmap() ([]HeatmapCell, error) {
	rows, err := s.db.Query(`
		SELECT geo_location, username, COUNT(*), SUM(volume_mb),
		       SUM(CASE WHEN label != 'BENIGN' THEN 1 ELSE 0 END)
		FROM verdicts
		GROUP BY geo_location, username
		ORDER BY 5 DESC, 4 DESC`)
	if err != nil {
		return nil, fmt.Errorf("aggregating heatmap: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cells []HeatmapCell
	for rows.Next() {
		var c HeatmapCell
		if err := rows.Scan(&c.GeoLocation, &c.Username, &c.Records, &c.TotalVolume, &c.Alerts); err != nil {
			return nil, fmt.Errorf("scanning heatmap cell: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}
