// api/router.go
package api

import (
	"database/sql"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/formbridge/formbridge-backend/api/handlers"
	"github.com/formbridge/formbridge-backend/api/middleware"
	"github.com/formbridge/formbridge-backend/config"
	"github.com/formbridge/formbridge-backend/internal/dropdown"
	"github.com/formbridge/formbridge-backend/internal/forms"
	"github.com/formbridge/formbridge-backend/internal/schema"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(appDB *sql.DB, cfg *config.Config) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	ratelimiter := middleware.NewRateLimiter()
	router.Use(middleware.RateLimitMiddleware(ratelimiter))
	// Must wrap the handlers so attached errors reach it on the way out.
	router.Use(middleware.ErrorHandler())

	// Shared components
	inspector := schema.NewInspector(appDB, cfg)
	resolver := dropdown.NewResolver(appDB)
	synth := forms.NewSynthesizer(appDB, cfg, inspector, resolver)
	engine := forms.NewEngine(appDB, cfg, inspector)

	// Handlers
	authHandler := handlers.NewAuthHandler(appDB, cfg)
	fieldHandler := handlers.NewFieldHandler(synth)
	ruleHandler := handlers.NewRuleHandler(synth)
	dropdownHandler := handlers.NewDropdownHandler(resolver)
	formHandler := handlers.NewFormHandler(appDB, synth, engine, inspector)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	// --- Protected Routes ---
	apiRoutes := router.Group("/api/v1")
	apiRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		// Field designer
		apiRoutes.GET("/fields", fieldHandler.ListFields)
		apiRoutes.POST("/fields/provision", fieldHandler.ProvisionFields)
		apiRoutes.PUT("/fields", fieldHandler.UpsertField)

		// Validation rules
		apiRoutes.GET("/fields/:field_id/rules", ruleHandler.ListRules)
		apiRoutes.POST("/fields/:field_id/rules", ruleHandler.CreateRule)
		apiRoutes.PUT("/rules/:rule_id", ruleHandler.UpdateRule)
		apiRoutes.DELETE("/rules/:rule_id", ruleHandler.DeleteRule)

		// Dropdown bindings and options
		apiRoutes.GET("/fields/:field_id/dropdown", dropdownHandler.GetBinding)
		apiRoutes.POST("/fields/:field_id/dropdown", dropdownHandler.CreateBinding)
		apiRoutes.PUT("/fields/:field_id/dropdown/sql", dropdownHandler.SetSQLSource)
		apiRoutes.POST("/fields/:field_id/dropdown/refresh", dropdownHandler.RefreshOptions)
		apiRoutes.PUT("/dropdowns/:dropdown_id/mode", dropdownHandler.SetMode)
		apiRoutes.POST("/dropdowns/:dropdown_id/options", dropdownHandler.SaveOption)
		apiRoutes.DELETE("/options/:option_id", dropdownHandler.DeleteOption)
		apiRoutes.POST("/dropdowns/preview", dropdownHandler.PreviewSQL)

		// Forms, list screens and submissions
		apiRoutes.GET("/forms/:form_id", formHandler.GetForm)
		apiRoutes.PUT("/forms/:form_id", formHandler.UpdateForm)
		apiRoutes.DELETE("/forms/:form_id", formHandler.DeleteForm)
		apiRoutes.GET("/forms/:form_id/rows", formHandler.ListRows)
		apiRoutes.GET("/forms/:form_id/submission", formHandler.GetSubmissionForm)
		apiRoutes.POST("/forms/:form_id/submissions", formHandler.Submit)
	}

	return router
}
