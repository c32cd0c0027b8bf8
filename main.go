package main

import (
	"coursemart/config"
	"coursemart/database"
	authRoutes "coursemart/routers/authRoutes"
	couponRoutes "coursemart/routers/couponRoutes"
	courseRoutes "coursemart/routers/courseRoutes"
	orderRoutes "coursemart/routers/orderRoutes"
	paymentRoutes "coursemart/routers/paymentRoutes"
	"coursemart/utils"

	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()
	utils.InitGateway()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization,Stripe-Signature", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve static files from the public folder
	app.Static("/", "./public")

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app)
	orderRoutes.SetupOrderRoutes(app)
	paymentRoutes.SetupPaymentRoutes(app)
	couponRoutes.SetupCouponRoutes(app)

	// Out-of-band repair of completed orders without enrollment
	utils.StartReconcileSweep()

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
