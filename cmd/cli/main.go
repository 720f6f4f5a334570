package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nimasrn/strike-client/charge"
	"github.com/nimasrn/strike-client/internal/config"
	"github.com/nimasrn/strike-client/pkg/logger"
	"github.com/nimasrn/strike-client/pkg/prom"
	"github.com/nimasrn/strike-client/watcher"
)

// usage:
//
//	cli create --amount=100 --description="note" [--customer-id=cus_x] [--wait]
//	cli get --id=ch_xxx [--wait]
func main() {
	err := config.Load(argEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	conf := config.Get()

	if conf.AppDebugMetricsAddr != "" {
		if err := prom.Create(conf.AppName, conf.AppEnv, conf.PromNamespace); err != nil {
			logger.Error("failed to register metrics", "error", err)
			return
		}
		go prom.ListenAndServe(conf.AppDebugMetricsAddr, conf.AppDebugMetricsURI)
	}

	client, err := charge.NewClient(charge.Config{
		APIKey:  conf.StrikeAPIKey,
		APIHost: conf.StrikeAPIHost,
		APIBase: conf.StrikeAPIBase,
		Timeout: conf.HTTPClientTimeout,
	})
	if err != nil {
		logger.Error("failed to build strike client", "error", err)
		return
	}

	ctx := context.Background()

	var ch *charge.Charge
	switch argCommand() {
	case "create":
		amount, err := strconv.ParseInt(argValue("--amount="), 10, 64)
		if err != nil {
			logger.Error("create needs a numeric --amount", "error", err)
			return
		}
		ch, err = client.Create(ctx, charge.CreateRequest{
			Amount:      amount,
			Currency:    charge.CurrencyBTC,
			Description: argValue("--description="),
			CustomerID:  argValue("--customer-id="),
		})
		if err != nil {
			logger.Error("failed to create charge", "error", err)
			return
		}
	case "get":
		id := argValue("--id=")
		if id == "" {
			logger.Error("get needs --id")
			return
		}
		ch, err = client.Get(ctx, id)
		if err != nil {
			logger.Error("failed to retrieve charge", "error", err)
			return
		}
	default:
		logger.Error("unknown command, expected create or get")
		return
	}

	printCharge(ctx, ch)

	if argHas("--wait") {
		waitForPayment(ctx, conf, ch)
	}
}

func printCharge(ctx context.Context, ch *charge.Charge) {
	id, _ := ch.ID(ctx)
	payReq, _ := ch.PaymentRequest(ctx)
	sat, _ := ch.AmountSatoshi(ctx)
	fmt.Printf("charge id:       %s\n", id)
	fmt.Printf("amount:          %d %s\n", ch.Amount(), ch.Currency())
	fmt.Printf("amount satoshi:  %d\n", sat)
	fmt.Printf("description:     %s\n", ch.Description())
	fmt.Printf("payment request: %s\n", payReq)
}

func waitForPayment(ctx context.Context, conf *config.Config, ch *charge.Charge) {
	w := watcher.New(watcher.Config{
		PollInterval: conf.WatchPollInterval,
		Workers:      conf.WatchWorkers,
	})
	defer w.Close()

	logger.Info("waiting for payment..")
	w.Watch(ctx, ch)
	ev := <-w.Events()
	if ev.Err != nil {
		logger.Error("watch failed", "error", ev.Err)
		return
	}
	fmt.Println("paid!")
}

func argCommand() string {
	for _, v := range os.Args[1:] {
		if !strings.HasPrefix(v, "--") {
			return v
		}
	}
	return ""
}

func argValue(prefix string) string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

func argHas(flag string) bool {
	for _, v := range os.Args {
		if v == flag {
			return true
		}
	}
	return false
}

func argEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	if _, err := os.Open(".env"); err != nil {
		return ""
	}
	return ".env"
}
