package http

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/core/usecases"
	"github.com/landledger/landledger/internal/pkg/geometry"
)

// landID reads the :id path parameter.
func landID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// queryFloat reads a float query parameter, falling back to def when absent.
func queryFloat(c *fiber.Ctx, key string, def float64) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// OwnerLandsHandler returns the lands held by an address.
func OwnerLandsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lands, err := deps.Lands.OwnerLands(c.UserContext(), c.Params("address"))
		if err != nil {
			return errFromDomain(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(lands)
		if offset >= total {
			lands = []domain.Land{}
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			lands = lands[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: lands, Pagination: pg})
	}
}

// OwnerMapHandler returns map markers for an owner's lands plus the number of
// lands that could not be drawn.
func OwnerMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lands, err := deps.Lands.OwnerLands(c.UserContext(), c.Params("address"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(deps.Maps.Markers(lands))
	}
}

// OwnerGeoJSONHandler renders an owner's lands as a GeoJSON FeatureCollection.
func OwnerGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lands, err := deps.Lands.OwnerLands(c.UserContext(), c.Params("address"))
		if err != nil {
			return errFromDomain(c, err)
		}
		fc, skipped := deps.Maps.GeoJSON(lands)
		body, err := fc.MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("X-Skipped-Locations", strconv.Itoa(skipped))
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(body)
	}
}

// GetLandHandler returns a single land by ID.
func GetLandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := landID(c)
		if !ok {
			return errBadRequest(c, "land id must be a positive integer")
		}
		land, err := deps.Lands.Get(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(land)
	}
}

// LandTransfersHandler returns the recorded ownership history of a land.
func LandTransfersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := landID(c)
		if !ok {
			return errBadRequest(c, "land id must be a positive integer")
		}
		transfers, err := deps.Lands.History(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		if transfers == nil {
			transfers = []domain.Transfer{}
		}
		return c.JSON(transfers)
	}
}

// NearLandsHandler returns indexed lands whose centre lies within a radius.
func NearLandsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lng") == "" {
			return errBadRequest(c, "lat and lng are required")
		}
		lat, ok := queryFloat(c, "lat", 0)
		if !ok {
			return errBadRequest(c, "lat must be a number")
		}
		lng, ok := queryFloat(c, "lng", 0)
		if !ok {
			return errBadRequest(c, "lng must be a number")
		}
		radius, ok := queryFloat(c, "radius", 1000)
		if !ok {
			return errBadRequest(c, "radius must be a number")
		}
		p := geometry.Point{Lat: lat, Lng: lng}
		limit := c.QueryInt("limit", 20)

		lands, err := deps.Lands.Near(c.UserContext(), p, radius, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		if lands == nil {
			lands = []domain.Land{}
		}
		return c.JSON(lands)
	}
}

// workflowAccepted is returned for ?async=true submissions.
type workflowAccepted struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// RegisterLandHandler registers a land. With ?async=true the registration
// runs as a workflow and the response carries its ID.
func RegisterLandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.RegisterLandInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if c.QueryBool("async", false) {
			if deps.Workflows == nil {
				return errUnavailable(c, "workflows are not configured")
			}
			if err := usecases.ValidateRegistration(&in); err != nil {
				return errFromDomain(c, err)
			}
			id, err := deps.Workflows.StartRegister(c.UserContext(), in)
			if err != nil {
				return errFromDomain(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(workflowAccepted{WorkflowID: id, Status: "submitted"})
		}

		res, err := deps.Lands.Register(c.UserContext(), in)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// TransferLandHandler transfers a land to a new owner.
func TransferLandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := landID(c)
		if !ok {
			return errBadRequest(c, "land id must be a positive integer")
		}
		var in domain.TransferLandInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		in.LandID = id

		if c.QueryBool("async", false) {
			if deps.Workflows == nil {
				return errUnavailable(c, "workflows are not configured")
			}
			if err := usecases.ValidateTransfer(&in); err != nil {
				return errFromDomain(c, err)
			}
			wid, err := deps.Workflows.StartTransfer(c.UserContext(), in)
			if err != nil {
				return errFromDomain(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(workflowAccepted{WorkflowID: wid, Status: "submitted"})
		}

		res, err := deps.Lands.Transfer(c.UserContext(), in)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

type draftRequest struct {
	Points geometry.Boundary `json:"points"`
}

// DraftHandler turns a drawn boundary into the registration form's location
// and area values.
func DraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req draftRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		draft, err := deps.Maps.Draft(req.Points)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(draft)
	}
}

type parseRequest struct {
	Location string `json:"location"`
}

// ParsedLocation is the parse endpoint's response.
type ParsedLocation struct {
	Kind        string            `json:"kind"`
	Displayable bool              `json:"displayable"`
	Boundary    geometry.Boundary `json:"boundary"`
	Center      *geometry.Point   `json:"center,omitempty"`
	Area        float64           `json:"area"`
}

// ParseLocationHandler reports how a stored location string is understood.
// Unparsable input is a normal result, not an error.
func ParseLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req parseRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		loc := deps.Maps.Parse(req.Location)
		out := ParsedLocation{
			Kind:        loc.Kind.String(),
			Displayable: loc.OK(),
			Boundary:    loc.Boundary,
		}
		if out.Boundary == nil {
			out.Boundary = geometry.Boundary{}
		}
		if loc.OK() {
			center := geometry.Centroid(loc.Boundary)
			out.Center = &center
			out.Area = geometry.EstimateArea(loc.Boundary)
		}
		return c.JSON(out)
	}
}

type suggestRequest struct {
	Description string `json:"description"`
}

// SuggestLocationHandler asks the language model for coordinates.
func SuggestLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Suggest == nil {
			return errUnavailable(c, "location suggestions are not configured")
		}
		var req suggestRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		s, err := deps.Suggest.Suggest(c.UserContext(), req.Description)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(s)
	}
}

// LedgerStatusHandler reports the connected account, chain and land count.
func LedgerStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := deps.Lands.Status(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(st)
	}
}
