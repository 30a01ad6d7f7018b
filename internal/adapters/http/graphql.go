package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/pkg/geometry"
)

// buildSchema creates the read-only GraphQL schema over the land services.
// Fields resolve through the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	landType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Land",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.Int},
			"location":      &graphql.Field{Type: graphql.String},
			"owner_name":    &graphql.Field{Type: graphql.String},
			"owner_address": &graphql.Field{Type: graphql.String},
			"document_hash": &graphql.Field{Type: graphql.String},
			"area":          &graphql.Field{Type: graphql.String},
			"exists":        &graphql.Field{Type: graphql.Boolean},
			"boundary": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Parsed location; empty when the location cannot be drawn",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					land, ok := p.Source.(domain.Land)
					if !ok {
						return nil, nil
					}
					return geometry.ParseLocation(land.Location).Boundary, nil
				},
			},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LandMarker",
		Fields: graphql.Fields{
			"land":        &graphql.Field{Type: landType},
			"kind":        &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{Type: graphql.NewList(pointType)},
			"center":      &graphql.Field{Type: pointType},
		},
	})

	mapViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapView",
		Fields: graphql.Fields{
			"markers": &graphql.Field{Type: graphql.NewList(markerType)},
			"skipped": &graphql.Field{Type: graphql.Int},
			"center":  &graphql.Field{Type: pointType},
			"note":    &graphql.Field{Type: graphql.String},
		},
	})

	transferType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Transfer",
		Fields: graphql.Fields{
			"land_id":        &graphql.Field{Type: graphql.Int},
			"from_address":   &graphql.Field{Type: graphql.String},
			"to_address":     &graphql.Field{Type: graphql.String},
			"new_owner_name": &graphql.Field{Type: graphql.String},
			"tx_hash":        &graphql.Field{Type: graphql.String},
			"created_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if t, ok := p.Source.(domain.Transfer); ok {
						return t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"), nil
					}
					return nil, nil
				},
			},
		},
	})

	idArg := func(p graphql.ResolveParams, name string) (uint64, error) {
		id, _ := p.Args[name].(int)
		if id <= 0 {
			return 0, errors.New(name + " must be a positive integer")
		}
		return uint64(id), nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"lands": &graphql.Field{
				Type:        graphql.NewList(landType),
				Description: "Lands held by an address",
				Args: graphql.FieldConfigArgument{
					"owner": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Lands.OwnerLands(p.Context, p.Args["owner"].(string))
				},
			},
			"landMarkers": &graphql.Field{
				Type:        mapViewType,
				Description: "Map markers for an owner's lands",
				Args: graphql.FieldConfigArgument{
					"owner": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lands, err := deps.Lands.OwnerLands(p.Context, p.Args["owner"].(string))
					if err != nil {
						return nil, err
					}
					return deps.Maps.Markers(lands), nil
				},
			},
			"land": &graphql.Field{
				Type:        landType,
				Description: "Get a land by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "id")
					if err != nil {
						return nil, err
					}
					land, err := deps.Lands.Get(p.Context, id)
					if err != nil {
						return nil, err
					}
					return *land, nil
				},
			},
			"transfers": &graphql.Field{
				Type:        graphql.NewList(transferType),
				Description: "Ownership history of a land",
				Args: graphql.FieldConfigArgument{
					"land_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "land_id")
					if err != nil {
						return nil, err
					}
					return deps.Lands.History(p.Context, id)
				},
			},
			"landsNear": &graphql.Field{
				Type:        graphql.NewList(landType),
				Description: "Lands whose centre lies within a radius of a point",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := geometry.Point{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					return deps.Lands.Near(p.Context, pt, p.Args["radius"].(float64), p.Args["limit"].(int))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		if result.HasErrors() {
			LoggerFromCtx(c.UserContext()).Warn("graphql errors", "count", len(result.Errors), "first", result.Errors[0].Message)
		}

		return c.JSON(result)
	}
}
