package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calderhq/storefront-backend/api/controllers"
	"github.com/calderhq/storefront-backend/api/middleware"
	brandsvc "github.com/calderhq/storefront-backend/internal/brands"
	categorysvc "github.com/calderhq/storefront-backend/internal/categories"
	productsvc "github.com/calderhq/storefront-backend/internal/products"
	variantsvc "github.com/calderhq/storefront-backend/internal/variants"
	"github.com/calderhq/storefront-backend/pkg/config"
	"github.com/calderhq/storefront-backend/pkg/logger"
	pkgredis "github.com/calderhq/storefront-backend/pkg/redis"
)

// Dependencies bundles everything the router wires into handlers.
type Dependencies struct {
	Config     *config.Config
	Logger     *logger.Logger
	Redis      *pkgredis.Client
	Registry   *prometheus.Registry
	Health     map[string]controllers.Pinger
	Categories categorysvc.Service
	Brands     brandsvc.Service
	Products   productsvc.Service
	Variants   variantsvc.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.GetCategoryTree(deps.Categories, logg))
			r.Post("/", controllers.CreateCategory(deps.Categories, logg))
			r.Route("/{categoryID}", func(r chi.Router) {
				r.Get("/", controllers.GetCategory(deps.Categories, logg))
				r.Patch("/", controllers.UpdateCategory(deps.Categories, logg))
				r.Put("/image", controllers.SetCategoryImage(deps.Categories, logg, cfg.Media.MaxUploadBytes))
				r.Delete("/image", controllers.RemoveCategoryImage(deps.Categories, logg))
			})
		})

		r.Route("/brands", func(r chi.Router) {
			r.Get("/", controllers.ListBrands(deps.Brands, logg))
			r.Post("/", controllers.CreateBrand(deps.Brands, logg))
			r.Route("/{brandID}", func(r chi.Router) {
				r.Get("/", controllers.GetBrand(deps.Brands, logg))
				r.Patch("/", controllers.UpdateBrand(deps.Brands, logg))
				r.Put("/logo", controllers.SetBrandLogo(deps.Brands, logg, cfg.Media.MaxUploadBytes))
				r.Delete("/logo", controllers.RemoveBrandLogo(deps.Brands, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Post("/", controllers.CreateProduct(deps.Products, logg, cfg.Media))
			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", controllers.GetProduct(deps.Products, logg))
				r.Patch("/", controllers.UpdateProduct(deps.Products, logg))
				r.Put("/categories", controllers.SyncProductCategories(deps.Products, logg))

				r.Route("/images", func(r chi.Router) {
					r.Post("/", controllers.AddProductImage(deps.Products, logg, cfg.Media))
					r.Delete("/{imageID}", controllers.RemoveProductImage(deps.Products, logg))
				})

				r.Route("/attributes", func(r chi.Router) {
					r.Get("/", controllers.ListProductAttributes(deps.Products, logg))
					r.Post("/", controllers.CreateProductAttribute(deps.Products, logg))
					r.Patch("/{attributeID}", controllers.UpdateProductAttribute(deps.Products, logg))
				})

				r.Route("/variants", func(r chi.Router) {
					r.Get("/", controllers.ListVariants(deps.Variants, logg))
					r.Post("/", controllers.CreateVariant(deps.Variants, logg))
				})
			})
		})

		r.Route("/variants/{variantID}", func(r chi.Router) {
			r.Get("/", controllers.GetVariant(deps.Variants, logg))
			r.Patch("/", controllers.UpdateVariant(deps.Variants, logg))
			r.Put("/attributes", controllers.SetVariantAttributeValue(deps.Variants, logg))
		})
	})

	return r
}
