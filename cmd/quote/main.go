package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/fee"
)

func main() {
	cityFlag := flag.String("city", "", "City id (airdrie, calgary, lethbridge); empty uses DEFAULT_CITY")
	distanceFlag := flag.Float64("km", -1, "Route distance in km; omit for a pending quote")
	tipPercent := flag.Float64("tip-percent", 0, "Tip as a percentage of the base delivery fee")
	tipAmount := flag.String("tip", "", "Custom tip amount, e.g. 4.50")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	calc := fee.NewCalculator(fee.NewEngine(cfg.Location), cfg.Cities, *cityFlag)
	if *distanceFlag >= 0 {
		calc.SetDistance(distanceFlag)
	}
	switch {
	case *tipPercent > 0:
		calc.SelectTip(fee.Percent(*tipPercent))
	case *tipAmount != "":
		calc.SelectTip(fee.Custom(*tipAmount))
	}

	q := calc.Quote().Rounded()
	city := calc.City()
	fmt.Printf("%s delivery\n", city.Name)
	if q.Pending {
		fmt.Println("  Total: Pending (enter both addresses to calculate)")
		fmt.Printf("  Tip:   $%s\n", fee.FormatMoney(q.Tip))
		return
	}
	fmt.Printf("  Distance:           %.1f km\n", *q.DistanceKm)
	fmt.Printf("  Base fee:           $%s\n", fee.FormatMoney(q.BaseFee))
	if q.DistanceSurcharge > 0 {
		fmt.Printf("  Distance surcharge: $%s\n", fee.FormatMoney(q.DistanceSurcharge))
	}
	if q.RushSurcharge > 0 {
		fmt.Printf("  Rush hour:          $%s\n", fee.FormatMoney(q.RushSurcharge))
	}
	fmt.Printf("  GST:                $%s\n", fee.FormatMoney(q.Tax))
	fmt.Printf("  Tip:                $%s\n", fee.FormatMoney(q.Tip))
	fmt.Printf("  Total:              $%s\n", fee.FormatMoney(q.Total))
}
