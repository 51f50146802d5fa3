package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"storefront/internal/models"
	"storefront/internal/storefront"
)

func printProducts(w io.Writer, products []models.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tRATING\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.1f\t%d\n", p.ID, p.Name, p.Category, p.Price, p.Rating, p.Stock)
	}
	tw.Flush()
}

func printProduct(w io.Writer, p models.Product) {
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(w, "  %s\n", p.Description)
	fmt.Fprintf(w, "  Category: %s  Price: %.2f  Rating: %.1f (%d reviews)  Stock: %d\n",
		p.Category, p.Price, p.Rating, p.ReviewsCount, p.Stock)
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "  Tags: %s\n", strings.Join(p.Tags, ", "))
	}
}

func printCart(w io.Writer, st storefront.State, totals storefront.Totals) {
	if len(st.Cart) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tLINE")
	for _, it := range st.Cart {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n", it.ID, it.Name, it.Quantity, it.Price, it.Price*float64(it.Quantity))
	}
	tw.Flush()

	fmt.Fprintf(w, "Subtotal: %.2f\n", totals.Subtotal)
	if st.ActiveCoupon != nil {
		fmt.Fprintf(w, "Coupon %s: -%.2f\n", st.ActiveCoupon.Code, totals.Discount)
	}
	fmt.Fprintf(w, "Total:    %.2f\n", totals.Total)
}

func printOrders(w io.Writer, orders []models.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tDATE\tITEMS\tTOTAL\tSTATUS")
	for _, o := range orders {
		n := 0
		for _, it := range o.Items {
			n += it.Quantity
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\n", o.ID, o.Date.Format("2006-01-02 15:04"), n, o.Total, o.Status)
	}
	tw.Flush()
}
