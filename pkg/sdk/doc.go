// Package analogist embeds the analogy service in a Go program.
//
// The client shares the daily quota with any analogist server pointed at the
// same counter store, so a CLI and the HTTP API draw from one budget.
//
//	client, _ := analogist.New(ctx,
//	    analogist.WithValkey("localhost:6379", ""),
//	    analogist.WithGemini(os.Getenv("GEMINI_API_KEY"), ""),
//	    analogist.WithDailyLimit(1000),
//	)
//	defer client.Close()
//
//	res, err := client.Generate(ctx, "river", "memory")
//	if errors.Is(err, analogist.ErrQuotaExceeded) {
//	    // come back tomorrow
//	}
//	fmt.Println(res.Text, res.Usage.Remaining)
package analogist
