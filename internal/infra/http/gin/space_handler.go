package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	spaceapp "spacebook/internal/app/handlers/spaces"
	"spacebook/internal/app/queries"
	domainspace "spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
)

type SpaceHTTP interface {
	Create(c *gin.Context)
	Search(c *gin.Context)
	Get(c *gin.Context)
	ReplacePricing(c *gin.Context)
	Slots(c *gin.Context)
}

type SpaceHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h SpaceHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleOwner)
	if !ok {
		return
	}
	var cmd spaceapp.CreateSpaceCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd.CommandID = uuid.NewString()
	cmd.OwnerID = p.ID
	result, err := commands.Dispatch[spaceapp.CreateSpaceCommand, dto.SpaceDetails](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h SpaceHandler) Search(c *gin.Context) {
	params := domainspace.SearchParams{
		Owner:  domainspace.OwnerID(strings.TrimSpace(c.Query("owner"))),
		Query:  c.Query("q"),
		Sort:   domainspace.CatalogSort(c.Query("sort")),
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	for _, raw := range c.QueryArray("type") {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				params.Types = append(params.Types, domainspace.PricingType(t))
			}
		}
	}
	params.PriceMin = int64Query(c, "priceMin")
	params.PriceMax = int64Query(c, "priceMax")
	result, err := queries.Ask[spaceapp.SearchSpacesQuery, dto.SpaceCatalog](c.Request.Context(), h.Queries, spaceapp.SearchSpacesQuery{Params: params})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SpaceHandler) Get(c *gin.Context) {
	result, err := queries.Ask[spaceapp.GetSpaceQuery, dto.SpaceDetails](c.Request.Context(), h.Queries, spaceapp.GetSpaceQuery{SpaceID: c.Param("id")})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SpaceHandler) ReplacePricing(c *gin.Context) {
	p, ok := requireRole(c, domainuser.RoleOwner)
	if !ok {
		return
	}
	var cmd spaceapp.ReplacePricingCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd.SpaceID = c.Param("id")
	cmd.ActorIDV = p.ID
	result, err := commands.Dispatch[spaceapp.ReplacePricingCommand, dto.SpaceDetails](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SpaceHandler) Slots(c *gin.Context) {
	q := spaceapp.ListSlotsQuery{SpaceID: c.Param("id"), Date: c.Query("date")}
	result, err := queries.Ask[spaceapp.ListSlotsQuery, dto.SlotList](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil {
		return 0
	}
	return v
}

func int64Query(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(c.Query(name)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

var _ SpaceHTTP = SpaceHandler{}
