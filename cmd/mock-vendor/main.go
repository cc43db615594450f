// mock-vendor emulates the wire surfaces of the real gateways (2Factor R1
// and V1, TextLocal, SendGrid v3) for local end-to-end runs. Point the
// vendor clients at it with their SetBaseURL hooks or a proxy.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	addr := getenv("HTTP_ADDR", ":9090")

	fiberApp := fiber.New(fiber.Config{AppName: "mock-vendor", DisableStartupMessage: true})

	// 2Factor R1: transactional/promotional SMS, form-encoded POST.
	fiberApp.Post("/API/R1/", func(c *fiber.Ctx) error {
		apiKey := c.FormValue("apikey")
		to := c.FormValue("to")
		if apiKey == "" || to == "" {
			return c.JSON(fiber.Map{"Status": "Error", "Details": "Invalid API Key or recipient"})
		}

		batchID := uuid.NewString()
		log.Info("r1 sms accepted",
			"module", c.FormValue("module"), "to", to, "from", c.FormValue("from"), "batch_id", batchID)
		return c.JSON(fiber.Map{"Status": "Success", "Details": batchID})
	})

	// 2Factor V1: OTP delivery, path-encoded GET.
	otpHandler := func(c *fiber.Ctx) error {
		if c.Params("apikey") == "" || c.Params("phone") == "" || c.Params("otp") == "" {
			return c.JSON(fiber.Map{"Status": "Error", "Details": "Invalid request"})
		}

		sessionID := uuid.NewString()
		log.Info("v1 otp accepted",
			"phone", c.Params("phone"), "template", c.Params("template"), "session_id", sessionID)
		return c.JSON(fiber.Map{"Status": "Success", "Details": sessionID})
	}
	fiberApp.Get("/API/V1/:apikey/SMS/:phone/:otp", otpHandler)
	fiberApp.Get("/API/V1/:apikey/SMS/:phone/:otp/:template", otpHandler)

	// TextLocal: one form-encoded POST per recipient.
	fiberApp.Post("/send/", func(c *fiber.Ctx) error {
		if c.FormValue("apikey") == "" {
			return c.JSON(fiber.Map{
				"status": "failure",
				"errors": []fiber.Map{{"code": 3, "message": "Invalid login details"}},
			})
		}

		messageID := uuid.NewString()
		log.Info("textlocal sms accepted",
			"numbers", c.FormValue("numbers"), "sender", c.FormValue("sender"), "message_id", messageID)
		return c.JSON(fiber.Map{"status": "success", "message_id": messageID})
	})

	// SendGrid v3: one JSON POST per notification, 202 with X-Message-Id.
	fiberApp.Post("/v3/mail/send", func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"errors": []fiber.Map{{"message": "authorization required"}},
			})
		}

		messageID := uuid.NewString()
		log.Info("sendgrid mail accepted", "bytes", len(c.Body()), "message_id", messageID)
		c.Set("X-Message-Id", messageID)
		return c.SendStatus(fiber.StatusAccepted)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("mock-vendor listening", "addr", addr)
		if err := fiberApp.Listen(addr); err != nil {
			log.Error("fiber listen", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down mock-vendor")
	_ = fiberApp.Shutdown()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
