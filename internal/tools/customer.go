// Copyright (c) Microsoft. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

type editPersonalInformationArgs struct {
	CustomerID  string `json:"customerId"`
	FirstName   string `json:"firstName"   jsonschema:"default="`
	LastName    string `json:"lastName"    jsonschema:"default="`
	Email       string `json:"email"       jsonschema:"default="`
	PhoneNumber string `json:"phoneNumber" jsonschema:"default="`
}

type cancelAccountArgs struct {
	CustomerID string `json:"customerId"`
	Reason     string `json:"reason" jsonschema:"default="`
}

type editAddressArgs struct {
	CustomerID    string `json:"customerId"`
	StreetAddress string `json:"streetAddress" jsonschema:"default="`
	City          string `json:"city"          jsonschema:"default="`
	State         string `json:"state"         jsonschema:"default="`
	PostalCode    string `json:"postalCode"    jsonschema:"default="`
	Country       string `json:"country"       jsonschema:"default="`
}

type changePasswordArgs struct {
	CustomerID  string `json:"customerId"`
	NewPassword string `json:"newPassword"`
}

type updatePaymentMethodArgs struct {
	CustomerID           string `json:"customerId"`
	PaymentMethodType    string `json:"paymentMethodType"`
	PaymentMethodDetails string `json:"paymentMethodDetails"`
}

type updateSubscriptionPreferencesArgs struct {
	CustomerID         string `json:"customerId"`
	EmailNotifications *bool  `json:"emailNotifications,omitempty"`
	SMSNotifications   *bool  `json:"smsNotifications,omitempty"`
	MarketingEmails    *bool  `json:"marketingEmails,omitempty"`
}

// Customer returns the customer account tools. CancelAccount and
// ChangePassword need approval: cancellation is destructive, and password
// changes belong to authenticated flows.
func Customer() []af.Tool {
	return []af.Tool{
		af.NewTypedTool("EditPersonalInformation", "Edit the personal information of a customer.", editPersonalInformation),
		af.NewTypedTool("CancelAccount", "Cancel a customer's account.", cancelAccount, af.WithApprovalRequired()),
		af.NewTypedTool("EditAddress", "Edit the address information for a customer.", editAddress),
		af.NewTypedTool("ChangePassword", "Change the password for a customer account.", changePassword, af.WithApprovalRequired()),
		af.NewTypedTool("UpdatePaymentMethod", "Update the payment method for a customer.", updatePaymentMethod),
		af.NewTypedTool("UpdateSubscriptionPreferences", "Update the subscription preferences for a customer.", updateSubscriptionPreferences),
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func editPersonalInformation(_ context.Context, a editPersonalInformationArgs) (any, error) {
	var updates []string
	if !blank(a.FirstName) {
		updates = append(updates, "First Name: "+a.FirstName)
	}
	if !blank(a.LastName) {
		updates = append(updates, "Last Name: "+a.LastName)
	}
	if !blank(a.Email) {
		updates = append(updates, "Email: "+a.Email)
	}
	if !blank(a.PhoneNumber) {
		updates = append(updates, "Phone Number: "+a.PhoneNumber)
	}
	if len(updates) == 0 {
		return fmt.Sprintf("No updates provided for customer %s. Personal information remains unchanged.", a.CustomerID), nil
	}
	return fmt.Sprintf("Successfully updated personal information for customer %s. Updated fields: %s",
		a.CustomerID, strings.Join(updates, ", ")), nil
}

func cancelAccount(_ context.Context, a cancelAccountArgs) (any, error) {
	if blank(a.CustomerID) {
		return "Error: Customer ID is required to cancel an account.", nil
	}
	reason := "No reason provided."
	if !blank(a.Reason) {
		reason = "Reason: " + a.Reason
	}
	return fmt.Sprintf("Account for customer %s has been successfully cancelled. %s", a.CustomerID, reason), nil
}

func editAddress(_ context.Context, a editAddressArgs) (any, error) {
	if blank(a.CustomerID) {
		return "Error: Customer ID is required to update address.", nil
	}
	var parts []string
	for _, p := range []string{a.StreetAddress, a.City, a.State, a.PostalCode, a.Country} {
		if !blank(p) {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("No address updates provided for customer %s. Address remains unchanged.", a.CustomerID), nil
	}
	return fmt.Sprintf("Successfully updated address for customer %s. New address: %s",
		a.CustomerID, strings.Join(parts, ", ")), nil
}

func changePassword(_ context.Context, a changePasswordArgs) (any, error) {
	if blank(a.CustomerID) {
		return "Error: Customer ID is required to change password.", nil
	}
	if blank(a.NewPassword) {
		return "Error: New password is required.", nil
	}
	return fmt.Sprintf("Password successfully changed for customer %s. A confirmation email has been sent.", a.CustomerID), nil
}

func updatePaymentMethod(_ context.Context, a updatePaymentMethodArgs) (any, error) {
	if blank(a.CustomerID) {
		return "Error: Customer ID is required to update payment method.", nil
	}
	if blank(a.PaymentMethodType) {
		return "Error: Payment method type is required.", nil
	}
	return fmt.Sprintf("Payment method successfully updated for customer %s. Payment method type: %s",
		a.CustomerID, a.PaymentMethodType), nil
}

func updateSubscriptionPreferences(_ context.Context, a updateSubscriptionPreferencesArgs) (any, error) {
	if blank(a.CustomerID) {
		return "Error: Customer ID is required to update subscription preferences.", nil
	}
	var prefs []string
	if a.EmailNotifications != nil {
		prefs = append(prefs, "Email Notifications: "+boolText(*a.EmailNotifications))
	}
	if a.SMSNotifications != nil {
		prefs = append(prefs, "SMS Notifications: "+boolText(*a.SMSNotifications))
	}
	if a.MarketingEmails != nil {
		prefs = append(prefs, "Marketing Emails: "+boolText(*a.MarketingEmails))
	}
	if len(prefs) == 0 {
		return fmt.Sprintf("No preference updates provided for customer %s. Preferences remain unchanged.", a.CustomerID), nil
	}
	return fmt.Sprintf("Subscription preferences successfully updated for customer %s. Updated preferences: %s",
		a.CustomerID, strings.Join(prefs, ", ")), nil
}

func boolText(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
