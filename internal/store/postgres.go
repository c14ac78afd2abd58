package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres implements Store over database/sql with the lib/pq driver.
//
// Writes within one building's reconciliation are not transactional; a
// failing step is logged by the caller and the batch moves on. Get-or-create
// paths use ON CONFLICT so concurrent batch runs cannot create duplicates.
type Postgres struct {
	db *sql.DB
}

var _ Store = (*Postgres)(nil)

// Open connects to Postgres and verifies the connection.
func Open(dsn string, maxConns int) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 2)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) GetCityBySlug(ctx context.Context, slug string) (*City, error) {
	var c City
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, name, slug FROM cities WHERE slug = $1`, slug,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get city %q: %w", slug, err)
	}
	return &c, nil
}

func (p *Postgres) GetOrCreateNeighborhood(ctx context.Context, cityID, name string) (*Neighborhood, error) {
	slug := Slugify(name)
	n := Neighborhood{ID: uuid.NewString(), CityID: cityID, Name: name, Slug: slug}

	err := p.db.QueryRowContext(ctx, `
		INSERT INTO neighborhoods (id, city_id, name, slug)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (city_id, slug) DO NOTHING
		RETURNING id::text`,
		n.ID, cityID, name, slug,
	).Scan(&n.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race or the row already existed; read it back.
		err = p.db.QueryRowContext(ctx,
			`SELECT id::text, name FROM neighborhoods WHERE city_id = $1 AND slug = $2`,
			cityID, slug,
		).Scan(&n.ID, &n.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("get or create neighborhood %q: %w", name, err)
	}
	return &n, nil
}

func (p *Postgres) ListNeighborhoodsBySlug(ctx context.Context, cityID string, slugs []string) ([]Neighborhood, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::text, city_id::text, name, slug
		  FROM neighborhoods
		 WHERE city_id = $1 AND slug = ANY($2)`,
		cityID, pq.Array(slugs))
	if err != nil {
		return nil, fmt.Errorf("list neighborhoods: %w", err)
	}
	defer rows.Close()

	var out []Neighborhood
	for rows.Next() {
		var n Neighborhood
		if err := rows.Scan(&n.ID, &n.CityID, &n.Name, &n.Slug); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

const buildingCols = `b.id::text, b.city_id::text, b.neighborhood_id::text, b.name, b.slug,
	COALESCE(b.address, ''), COALESCE(b.description, ''),
	COALESCE(b.pet_policy, ''), COALESCE(b.parking_policy, ''),
	b.status, COALESCE(b.website_url, ''), b.created_at, b.updated_at`

func scanBuilding(s interface{ Scan(...any) error }) (Building, error) {
	var b Building
	var neighborhoodID sql.NullString
	err := s.Scan(&b.ID, &b.CityID, &neighborhoodID, &b.Name, &b.Slug,
		&b.Address, &b.Description, &b.PetPolicy, &b.ParkingPolicy,
		&b.Status, &b.WebsiteURL, &b.CreatedAt, &b.UpdatedAt)
	if neighborhoodID.Valid {
		b.NeighborhoodID = &neighborhoodID.String
	}
	return b, err
}

func (p *Postgres) GetBuilding(ctx context.Context, id string) (*Building, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+buildingCols+` FROM buildings b WHERE b.id = $1`, id)
	b, err := scanBuilding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get building %s: %w", id, err)
	}
	return &b, nil
}

func (p *Postgres) ListBuildings(ctx context.Context, q BuildingQuery) ([]Building, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.CityID != "" {
		where = append(where, "b.city_id = "+arg(q.CityID))
	}
	if len(q.NeighborhoodIDs) > 0 {
		where = append(where, "b.neighborhood_id = ANY("+arg(pq.Array(q.NeighborhoodIDs))+")")
	}
	if q.Status != "" {
		where = append(where, "b.status = "+arg(string(q.Status)))
	}
	if q.RequireWebsite {
		where = append(where, "b.website_url IS NOT NULL AND b.website_url <> ''")
	}
	if q.PetFriendly {
		where = append(where, "b.pet_policy IS NOT NULL AND b.pet_policy <> ''")
	}
	if q.ParkingRequired {
		where = append(where, "b.parking_policy IS NOT NULL AND b.parking_policy <> ''")
	}

	query := `SELECT ` + buildingCols + ` FROM buildings b`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.name"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	defer rows.Close()

	var out []Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateBuildingPolicies(ctx context.Context, buildingID, petPolicy, parkingPolicy string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE buildings
		   SET pet_policy     = COALESCE(NULLIF($2, ''), pet_policy),
		       parking_policy = COALESCE(NULLIF($3, ''), parking_policy),
		       updated_at     = now()
		 WHERE id = $1`,
		buildingID, petPolicy, parkingPolicy)
	if err != nil {
		return fmt.Errorf("update building policies: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertUnit(ctx context.Context, u *Unit) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO units (id, building_id, floorplan_id, unit_number, floor,
		                   beds, baths, sqft, view, is_available, available_on,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (building_id, unit_number) DO UPDATE SET
			floorplan_id = COALESCE(EXCLUDED.floorplan_id, units.floorplan_id),
			floor        = EXCLUDED.floor,
			beds         = EXCLUDED.beds,
			baths        = EXCLUDED.baths,
			sqft         = EXCLUDED.sqft,
			view         = EXCLUDED.view,
			is_available = EXCLUDED.is_available,
			available_on = EXCLUDED.available_on,
			updated_at   = now()
		RETURNING id::text, created_at, updated_at`,
		u.ID, u.BuildingID, u.FloorplanID, u.UnitNumber, u.Floor,
		u.Beds, u.Baths, u.Sqft, u.View, u.IsAvailable, u.AvailableOn,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert unit %s/%s: %w", u.BuildingID, u.UnitNumber, err)
	}
	return nil
}

func (p *Postgres) ListUnits(ctx context.Context, q UnitQuery) ([]Unit, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.BuildingIDs) > 0 {
		where = append(where, "building_id = ANY("+arg(pq.Array(q.BuildingIDs))+")")
	}
	if q.AvailableOnly {
		where = append(where, "is_available")
	}
	if q.BedsMin != nil {
		where = append(where, "beds >= "+arg(*q.BedsMin))
	}
	if q.BedsMax != nil {
		where = append(where, "beds <= "+arg(*q.BedsMax))
	}
	if q.BathsMin != nil {
		where = append(where, "baths >= "+arg(*q.BathsMin))
	}
	if q.MoveInBy != nil {
		where = append(where, "(available_on IS NULL OR available_on <= "+arg(*q.MoveInBy)+")")
	}

	query := `SELECT id::text, building_id::text, floorplan_id::text,
		COALESCE(unit_number, ''), COALESCE(floor, ''), beds, baths,
		COALESCE(sqft, 0), COALESCE(view, ''), is_available, available_on,
		created_at, updated_at FROM units`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY building_id, unit_number"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []Unit
	for rows.Next() {
		var u Unit
		var floorplanID sql.NullString
		var availableOn sql.NullTime
		if err := rows.Scan(&u.ID, &u.BuildingID, &floorplanID, &u.UnitNumber,
			&u.Floor, &u.Beds, &u.Baths, &u.Sqft, &u.View, &u.IsAvailable,
			&availableOn, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if floorplanID.Valid {
			u.FloorplanID = &floorplanID.String
		}
		if availableOn.Valid {
			u.AvailableOn = &availableOn.Time
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// MarkUnitsUnavailable flips is_available off for every available unit of the
// building whose unit number is not in the just-scraped active set. Delisted
// units age out this way instead of being deleted.
func (p *Postgres) MarkUnitsUnavailable(ctx context.Context, buildingID string, activeUnitNumbers []string) (int, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE units
		   SET is_available = false, updated_at = now()
		 WHERE building_id = $1
		   AND is_available
		   AND NOT (unit_number = ANY($2))`,
		buildingID, pq.Array(activeUnitNumbers))
	if err != nil {
		return 0, fmt.Errorf("mark units unavailable: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (p *Postgres) AddPriceSnapshot(ctx context.Context, s *UnitPriceSnapshot) error {
	if s.CapturedAt.IsZero() {
		s.CapturedAt = time.Now().UTC()
	}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO unit_price_snapshots (unit_id, rent, captured_at, source)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		s.UnitID, s.Rent, s.CapturedAt, s.Source,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("add price snapshot for unit %s: %w", s.UnitID, err)
	}
	return nil
}

// LatestSnapshots returns the current price snapshot per unit: greatest
// captured_at, ties broken by id.
func (p *Postgres) LatestSnapshots(ctx context.Context, unitIDs []string) (map[string]UnitPriceSnapshot, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT ON (unit_id)
		       id, unit_id::text, rent, captured_at, COALESCE(source, '')
		  FROM unit_price_snapshots
		 WHERE unit_id = ANY($1)
		 ORDER BY unit_id, captured_at DESC, id DESC`,
		pq.Array(unitIDs))
	if err != nil {
		return nil, fmt.Errorf("latest snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]UnitPriceSnapshot)
	for rows.Next() {
		var s UnitPriceSnapshot
		if err := rows.Scan(&s.ID, &s.UnitID, &s.Rent, &s.CapturedAt, &s.Source); err != nil {
			return nil, err
		}
		out[s.UnitID] = s
	}
	return out, rows.Err()
}

// GetOrCreateAmenity dedups amenities globally by exact name. The insert and
// the fallback select collapse the select-then-insert race into safe steps.
func (p *Postgres) GetOrCreateAmenity(ctx context.Context, name, category string) (*Amenity, error) {
	a := Amenity{ID: uuid.NewString(), Name: name, Category: category}

	err := p.db.QueryRowContext(ctx, `
		INSERT INTO amenities (id, name, category)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (name) DO NOTHING
		RETURNING id::text`,
		a.ID, name, category,
	).Scan(&a.ID)
	if errors.Is(err, sql.ErrNoRows) {
		err = p.db.QueryRowContext(ctx,
			`SELECT id::text, COALESCE(category, '') FROM amenities WHERE name = $1`, name,
		).Scan(&a.ID, &a.Category)
	}
	if err != nil {
		return nil, fmt.Errorf("get or create amenity %q: %w", name, err)
	}
	return &a, nil
}

func (p *Postgres) LinkBuildingAmenity(ctx context.Context, buildingID, amenityID, details string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO building_amenities (building_id, amenity_id, details)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (building_id, amenity_id) DO UPDATE SET
			details = COALESCE(EXCLUDED.details, building_amenities.details)`,
		buildingID, amenityID, details)
	if err != nil {
		return fmt.Errorf("link amenity %s to building %s: %w", amenityID, buildingID, err)
	}
	return nil
}

// AmenityNamesByBuilding loads every candidate building's amenity names in
// one query. Search filtering depends on this staying batched; the candidate
// set can be in the hundreds.
func (p *Postgres) AmenityNamesByBuilding(ctx context.Context, buildingIDs []string) (map[string][]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT ba.building_id::text, a.name
		  FROM building_amenities ba
		  JOIN amenities a ON a.id = ba.amenity_id
		 WHERE ba.building_id = ANY($1)`,
		pq.Array(buildingIDs))
	if err != nil {
		return nil, fmt.Errorf("amenity names by building: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var buildingID, name string
		if err := rows.Scan(&buildingID, &name); err != nil {
			return nil, err
		}
		out[buildingID] = append(out[buildingID], name)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOrCreateFloorplan(ctx context.Context, fp *Floorplan) (*Floorplan, error) {
	if fp.ID == "" {
		fp.ID = uuid.NewString()
	}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO floorplans (id, building_id, name, beds, baths, sqft)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (building_id, name) DO UPDATE SET
			beds = EXCLUDED.beds, baths = EXCLUDED.baths, sqft = EXCLUDED.sqft
		RETURNING id::text`,
		fp.ID, fp.BuildingID, fp.Name, fp.Beds, fp.Baths, fp.Sqft,
	).Scan(&fp.ID)
	if err != nil {
		return nil, fmt.Errorf("get or create floorplan %q: %w", fp.Name, err)
	}
	return fp, nil
}

func (p *Postgres) FloorplansByID(ctx context.Context, ids []string) (map[string]Floorplan, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::text, building_id::text, name, beds, baths, COALESCE(sqft, 0)
		  FROM floorplans
		 WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("floorplans by id: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Floorplan)
	for rows.Next() {
		var fp Floorplan
		if err := rows.Scan(&fp.ID, &fp.BuildingID, &fp.Name, &fp.Beds, &fp.Baths, &fp.Sqft); err != nil {
			return nil, err
		}
		out[fp.ID] = fp
	}
	return out, rows.Err()
}

func (p *Postgres) UnitImages(ctx context.Context, unitIDs []string) (map[string][]UnitImage, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::text, unit_id::text, url, position
		  FROM unit_images
		 WHERE unit_id = ANY($1)
		 ORDER BY unit_id, position`,
		pq.Array(unitIDs))
	if err != nil {
		return nil, fmt.Errorf("unit images: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]UnitImage)
	for rows.Next() {
		var img UnitImage
		if err := rows.Scan(&img.ID, &img.UnitID, &img.URL, &img.Position); err != nil {
			return nil, err
		}
		out[img.UnitID] = append(out[img.UnitID], img)
	}
	return out, rows.Err()
}

func (p *Postgres) BuildingImages(ctx context.Context, buildingIDs []string) (map[string][]BuildingImage, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::text, building_id::text, url, position
		  FROM building_images
		 WHERE building_id = ANY($1)
		 ORDER BY building_id, position`,
		pq.Array(buildingIDs))
	if err != nil {
		return nil, fmt.Errorf("building images: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]BuildingImage)
	for rows.Next() {
		var img BuildingImage
		if err := rows.Scan(&img.ID, &img.BuildingID, &img.URL, &img.Position); err != nil {
			return nil, err
		}
		out[img.BuildingID] = append(out[img.BuildingID], img)
	}
	return out, rows.Err()
}

// GetScrapeStatuses returns status rows for the given buildings, or every
// row when buildingIDs is empty. Buildings without a row are absent from the
// map; absence means never scraped.
func (p *Postgres) GetScrapeStatuses(ctx context.Context, buildingIDs []string) (map[string]ScrapeStatus, error) {
	query := `
		SELECT building_id::text, COALESCE(website_url, ''), scrape_enabled,
		       units_scraped_at, units_success, COALESCE(units_error, ''), units_found,
		       amenities_scraped_at, amenities_success, COALESCE(amenities_error, ''),
		       updated_at
		  FROM building_scrape_status`
	var args []any
	if len(buildingIDs) > 0 {
		query += ` WHERE building_id = ANY($1)`
		args = append(args, pq.Array(buildingIDs))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get scrape statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ScrapeStatus)
	for rows.Next() {
		var s ScrapeStatus
		var unitsAt, amenitiesAt sql.NullTime
		if err := rows.Scan(&s.BuildingID, &s.WebsiteURL, &s.ScrapeEnabled,
			&unitsAt, &s.UnitsSuccess, &s.UnitsError, &s.UnitsFound,
			&amenitiesAt, &s.AmenitiesSuccess, &s.AmenitiesError,
			&s.UpdatedAt); err != nil {
			return nil, err
		}
		if unitsAt.Valid {
			s.UnitsScrapedAt = &unitsAt.Time
		}
		if amenitiesAt.Valid {
			s.AmenitiesScrapedAt = &amenitiesAt.Time
		}
		out[s.BuildingID] = s
	}
	return out, rows.Err()
}

// UpdateScrapeStatus upserts the building's row, stamping the touched
// track(s) with the attempt time whether or not the scrape succeeded. A
// failed attempt still counts as attempted now.
func (p *Postgres) UpdateScrapeStatus(ctx context.Context, upd StatusUpdate) error {
	at := upd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if upd.Type == ScrapeUnits || upd.Type == ScrapeFull {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO building_scrape_status
				(building_id, website_url, scrape_enabled,
				 units_scraped_at, units_success, units_error, units_found, updated_at)
			VALUES ($1, NULLIF($2, ''), true, $3, $4, NULLIF($5, ''), $6, $3)
			ON CONFLICT (building_id) DO UPDATE SET
				website_url      = COALESCE(NULLIF(EXCLUDED.website_url, ''), building_scrape_status.website_url),
				units_scraped_at = EXCLUDED.units_scraped_at,
				units_success    = EXCLUDED.units_success,
				units_error      = EXCLUDED.units_error,
				units_found      = EXCLUDED.units_found,
				updated_at       = EXCLUDED.updated_at`,
			upd.BuildingID, upd.WebsiteURL, at, upd.Success, upd.Error, upd.UnitsFound)
		if err != nil {
			return fmt.Errorf("update units scrape status: %w", err)
		}
	}

	if upd.Type == ScrapeAmenities || upd.Type == ScrapeFull {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO building_scrape_status
				(building_id, website_url, scrape_enabled,
				 amenities_scraped_at, amenities_success, amenities_error, updated_at)
			VALUES ($1, NULLIF($2, ''), true, $3, $4, NULLIF($5, ''), $3)
			ON CONFLICT (building_id) DO UPDATE SET
				website_url          = COALESCE(NULLIF(EXCLUDED.website_url, ''), building_scrape_status.website_url),
				amenities_scraped_at = EXCLUDED.amenities_scraped_at,
				amenities_success    = EXCLUDED.amenities_success,
				amenities_error      = EXCLUDED.amenities_error,
				updated_at           = EXCLUDED.updated_at`,
			upd.BuildingID, upd.WebsiteURL, at, upd.Success, upd.Error)
		if err != nil {
			return fmt.Errorf("update amenities scrape status: %w", err)
		}
	}

	return nil
}

// SetScrapeEnabled flips the kill switch, creating status rows for buildings
// that have never been scraped so a disable sticks.
func (p *Postgres) SetScrapeEnabled(ctx context.Context, buildingIDs []string, enabled bool) error {
	for _, id := range buildingIDs {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO building_scrape_status (building_id, scrape_enabled, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (building_id) DO UPDATE SET
				scrape_enabled = EXCLUDED.scrape_enabled,
				updated_at     = now()`,
			id, enabled)
		if err != nil {
			return fmt.Errorf("set scrape_enabled for building %s: %w", id, err)
		}
	}
	return nil
}

func (p *Postgres) CreateScrapeJob(ctx context.Context, job *ScrapeJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = JobPending
	}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO scrape_jobs (id, job_type, city_id, building_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`,
		job.ID, job.JobType, job.CityID, job.BuildingID, job.Status,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create scrape job: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateScrapeJob(ctx context.Context, job *ScrapeJob) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE scrape_jobs
		   SET status = $2, processed = $3, succeeded = $4, failed = $5,
		       units_found = $6, amenities_found = $7, errors = $8,
		       started_at = $9, finished_at = $10, updated_at = now()
		 WHERE id = $1`,
		job.ID, job.Status, job.Processed, job.Succeeded, job.Failed,
		job.UnitsFound, job.AmenitiesFound, pq.Array(job.Errors),
		job.StartedAt, job.FinishedAt)
	if err != nil {
		return fmt.Errorf("update scrape job %s: %w", job.ID, err)
	}
	return nil
}

func (p *Postgres) ListRecentScrapeJobs(ctx context.Context, limit int) ([]ScrapeJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id::text, job_type, city_id::text, building_id::text, status,
		       processed, succeeded, failed, units_found, amenities_found,
		       COALESCE(errors, '{}'), started_at, finished_at, created_at, updated_at
		  FROM scrape_jobs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list scrape jobs: %w", err)
	}
	defer rows.Close()

	var out []ScrapeJob
	for rows.Next() {
		var j ScrapeJob
		var cityID, buildingID sql.NullString
		var startedAt, finishedAt sql.NullTime
		if err := rows.Scan(&j.ID, &j.JobType, &cityID, &buildingID, &j.Status,
			&j.Processed, &j.Succeeded, &j.Failed, &j.UnitsFound, &j.AmenitiesFound,
			pq.Array(&j.Errors), &startedAt, &finishedAt, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		if cityID.Valid {
			j.CityID = &cityID.String
		}
		if buildingID.Valid {
			j.BuildingID = &buildingID.String
		}
		if startedAt.Valid {
			j.StartedAt = &startedAt.Time
		}
		if finishedAt.Valid {
			j.FinishedAt = &finishedAt.Time
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
