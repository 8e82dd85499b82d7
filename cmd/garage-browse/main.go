// Command garage-browse browses a running garagesale server from the
// terminal. It drives the same controller as the web page, so its visits
// count as views and searches.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"garagesale/internal/browse"
	"garagesale/internal/client"
	"garagesale/internal/domain"
)

func main() {
	var (
		server    = pflag.StringP("server", "s", "http://localhost:8080", "garagesale server URL")
		query     = pflag.StringP("query", "q", "", "search term")
		category  = pflag.StringP("category", "c", "", "category name")
		condition = pflag.String("condition", "", "New or Used")
		location  = pflag.StringP("location", "l", "", "province or locality name")
		endsIn    = pflag.String("ends-in", "", "today, tomorrow, 7+days or 30+days")
		priceMin  = pflag.String("price-min", "", "minimum price")
		priceMax  = pflag.String("price-max", "", "maximum price")
		seller    = pflag.Int64("seller", 0, "seller id")
		page      = pflag.IntP("page", "p", 1, "result page")
		suggest   = pflag.String("suggest", "", "show autocomplete suggestions for this term and exit")
		timeout   = pflag.Duration("timeout", 5*time.Second, "per-request timeout")
		verbose   = pflag.BoolP("verbose", "v", false, "log background calls")
	)
	pflag.Parse()

	log := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			log = l
		}
	}

	c := client.New(*server, *timeout)
	ctx := context.Background()

	if *suggest != "" {
		if !browse.ShouldSuggest(*suggest) {
			fail("type at least two characters")
		}
		res, err := c.Suggest(ctx, *suggest, *category)
		if err != nil {
			fail(err.Error())
		}
		printPanel(browse.BuildPanel(*suggest, res))
		return
	}
	ctrl := browse.NewController(ctx, c, c, nil, browse.Config{Log: log})

	var f browse.Filter
	f.SetSearch(*query)
	f.SetCategory(*category)
	if *condition != "" {
		cond, ok := domain.ParseCondition(*condition)
		if !ok {
			fail("condition must be New or Used")
		}
		f.SetCondition(cond)
	}
	f.SetLocation(*location)
	if *endsIn != "" {
		e, ok := domain.ParseEndsIn(*endsIn)
		if !ok {
			fail("unknown ends-in bucket " + *endsIn)
		}
		f.SetEndsIn(e)
	}
	f.SellerID = *seller
	f.StagePriceMin(*priceMin)
	f.StagePriceMax(*priceMax)
	f.ApplyPrice()
	f.SetPage(*page)

	ctrl.SetFilter(f)
	ctrl.Drain()
	st := ctrl.State()
	if st.Err != "" {
		fail(st.Err)
	}
	printView(st)
}

func printView(st browse.State) {
	if browse.Home(st.Filter) {
		fmt.Println("Featured")
	}
	if fix := st.Page.Suggestion; fix != "" {
		fmt.Printf("Did you mean %q?\n", fix)
	}
	if st.View.Empty {
		fmt.Println("No listings match these filters.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tCONDITION\tLOCATION\tENDS\tSELLER")
	for _, card := range st.View.Cards {
		title := card.Title
		if card.Featured {
			title = "* " + title
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			card.ID, title, card.Price, card.Condition, card.Location, card.TimeLeft, card.Seller)
	}
	_ = w.Flush()
	if p := st.View.Pagination; p != nil {
		fmt.Printf("page %d of %d, %d listings\n", p.Page, p.Pages, st.View.Total)
	} else {
		fmt.Printf("%d listings\n", st.View.Total)
	}
}

func printPanel(p browse.Panel) {
	if p.NoResults {
		fmt.Printf("no suggestions for %q\n", p.Term)
	}
	for _, s := range p.Items {
		fmt.Printf("%-9s %s\n", s.Type, s.Text)
	}
	if p.DidYouMean != "" {
		fmt.Printf("did you mean %q?\n", p.DidYouMean)
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "garage-browse:", msg)
	os.Exit(1)
}
