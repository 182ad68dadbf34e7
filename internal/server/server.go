package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tipcast/tipcast-api/internal/client/custody"
	"github.com/tipcast/tipcast-api/internal/client/faucet"
	httpclient "github.com/tipcast/tipcast-api/internal/client/http"
	"github.com/tipcast/tipcast-api/internal/client/neynar"
	"github.com/tipcast/tipcast-api/internal/client/prices"
	"github.com/tipcast/tipcast-api/internal/handlers"
	"github.com/tipcast/tipcast-api/internal/logger"
	"go.uber.org/zap"
)

// Handler Definitions
var (
	healthHandler      *handlers.HealthHandler
	postsHandler       *handlers.PostsHandler
	walletsHandler     *handlers.WalletsHandler
	faucetHandler      *handlers.FaucetHandler
	priceHandler       *handlers.PriceHandler
	permissionsHandler *handlers.PermissionsHandler
)

const defaultWalletRPCURL = "https://rpc.wallet.coinbase.com"

// InitializeHandlers builds the upstream clients from the environment and
// wires them into the API handlers.
func InitializeHandlers() {
	neynarKey := os.Getenv("NEYNAR_API_KEY")
	if neynarKey == "" {
		logger.Fatal("NEYNAR_API_KEY environment variable is required")
	}

	faucetURL := os.Getenv("FAUCET_SERVICE_URL")
	if faucetURL == "" {
		logger.Fatal("FAUCET_SERVICE_URL environment variable is required")
	}

	privyAppID := os.Getenv("PRIVY_APP_ID")
	privyAppSecret := os.Getenv("PRIVY_APP_SECRET")
	if privyAppID == "" || privyAppSecret == "" {
		logger.Fatal("PRIVY_APP_ID and PRIVY_APP_SECRET environment variables are required")
	}
	privyClient := custody.NewPrivyClient(privyAppID, privyAppSecret)

	turnkeyClient, err := custody.NewTurnkeyClient(
		os.Getenv("TURNKEY_ORG_ID"),
		os.Getenv("TURNKEY_API_PUBLIC_KEY"),
		os.Getenv("TURNKEY_API_SECRET_KEY"),
	)
	if err != nil {
		logger.Fatal("Unable to create turnkey client", zap.Error(err))
	}

	walletRPCURL := os.Getenv("WALLET_RPC_URL")
	if walletRPCURL == "" {
		walletRPCURL = defaultWalletRPCURL
	}

	healthHandler = handlers.NewHealthHandler()
	postsHandler = handlers.NewPostsHandler(neynar.NewClient(neynarKey))
	walletsHandler = handlers.NewWalletsHandler(privyClient, turnkeyClient)
	faucetHandler = handlers.NewFaucetHandler(faucet.NewClient(faucetURL))
	priceHandler = handlers.NewPriceHandler(prices.NewClient())
	permissionsHandler = handlers.NewPermissionsHandler(
		httpclient.NewClient(httpclient.WithBaseURL(walletRPCURL)))
}

// InitializeRoutes registers middleware and the API routes.
func InitializeRoutes(router *gin.Engine) {
	// Initialize logger first
	logger.InitLogger()

	// Configure and apply CORS middleware
	router.Use(configureCORS())

	// Health check
	router.GET("/health", healthHandler.Health)

	// if we are not in production, log the request body
	if os.Getenv("GIN_MODE") != "release" {
		router.Use(handlers.LogRequest())
	}

	api := router.Group("/api")
	{
		api.GET("/posts", postsHandler.GetPosts)

		api.POST("/wallets", walletsHandler.CreateWallet)
		api.POST("/wallets/sign", walletsHandler.Sign)

		api.POST("/faucet", faucetHandler.Dispense)
		api.GET("/prices/eth", priceHandler.GetEthPrice)
		api.POST("/permissions", permissionsHandler.FetchPermissions)
	}
}

// configureCORS returns a configured CORS middleware
func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		// Default to localhost if not set
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		// Split and trim the origins
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}

	return cors.New(corsConfig)
}
