package response

import "testing"

func TestCalculatePagination(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		total     int64
		wantPage  int
		wantLimit int
		wantPages int
	}{
		{"exact pages", 1, 10, 30, 1, 10, 3},
		{"partial last page", 2, 10, 31, 2, 10, 4},
		{"empty set", 1, 10, 0, 1, 10, 0},
		{"page below one", 0, 10, 5, 1, 10, 1},
		{"limit below one", 1, 0, 5, 1, 10, 1},
		{"limit capped", 1, 500, 250, 1, 100, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := CalculatePagination(tt.page, tt.limit, tt.total)
			if meta.CurrentPage != tt.wantPage {
				t.Errorf("CurrentPage = %d, want %d", meta.CurrentPage, tt.wantPage)
			}
			if meta.PerPage != tt.wantLimit {
				t.Errorf("PerPage = %d, want %d", meta.PerPage, tt.wantLimit)
			}
			if meta.Total != tt.total {
				t.Errorf("Total = %d, want %d", meta.Total, tt.total)
			}
			if meta.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", meta.TotalPages, tt.wantPages)
			}
		})
	}
}
