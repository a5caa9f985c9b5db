package engine

// Greeting seeds every new session as the assistant's opening message.
const Greeting = "Hello! I'm your AI support assistant. I'm here to help you resolve technical issues quickly and efficiently. " +
	"What can I help you with today?"

// Apology replaces a reply whose delivery failed. The session stays usable;
// the user is expected to resubmit.
const Apology = "I apologize, but I'm having trouble connecting right now. " +
	"Please try again or contact our support team directly."

// responses maps every category to its canned reply. The templates are
// immutable; adding a category means adding both a classifier rule and an
// entry here, and the lockstep between the two is test-enforced.
var responses = map[Category]string{
	CategoryLogin: "I can help you with login issues! Here are some steps to try:\n\n" +
		"1. Check that you're using the correct email address\n" +
		"2. Try resetting your password using the 'Forgot Password' link\n" +
		"3. Clear your browser cache and cookies\n" +
		"4. Try logging in from an incognito/private browser window\n\n" +
		"If none of these work, I can escalate this to our technical team. Would you like me to do that?",

	CategoryBilling: "I understand you have a payment-related question. Here's how I can help:\n\n" +
		"1. Check your payment method is up to date\n" +
		"2. Verify your billing address matches your card\n" +
		"3. Ensure you have sufficient funds available\n" +
		"4. Try using a different payment method\n\n" +
		"For specific billing questions or disputes, I'll connect you with our billing specialist. Would you like me to do that?",

	CategoryTechnical: "I'm sorry you're experiencing technical difficulties. Let me help troubleshoot this:\n\n" +
		"1. Try refreshing the page (Ctrl+F5 or Cmd+R)\n" +
		"2. Check your internet connection\n" +
		"3. Try disabling browser extensions temporarily\n" +
		"4. Clear your browser cache\n" +
		"5. Try using a different browser\n\n" +
		"Can you tell me more about the specific error message you're seeing?",

	CategoryAccount: "I can help you with account settings! Here are common account management tasks:\n\n" +
		"1. Update your profile information in Settings > Profile\n" +
		"2. Change notification preferences in Settings > Notifications\n" +
		"3. Manage privacy settings in Settings > Privacy\n" +
		"4. Update payment methods in Settings > Billing\n\n" +
		"What specific account setting would you like help with?",

	CategoryHelp: "I'm here to help! I can assist you with:\n\n" +
		"✅ Login and password issues\n" +
		"✅ Payment and billing questions\n" +
		"✅ Technical troubleshooting\n" +
		"✅ Account settings\n" +
		"✅ Feature explanations\n\n" +
		"What can I help you with today? Just describe your issue and I'll do my best to assist you!",

	CategoryGratitude: "You're very welcome! I'm glad I could help. " +
		"Is there anything else you need assistance with today? I'm here whenever you need support!",

	CategoryGeneral: "Thank you for contacting our support team! I'm here to help you with any questions or issues you might have.\n\n" +
		"I can assist with:\n" +
		"• Login and password problems\n" +
		"• Payment and billing questions\n" +
		"• Technical issues\n" +
		"• Account settings\n\n" +
		"Please describe your issue in detail, and I'll provide you with the best solution. How can I help you today?",
}

// Response returns the canned reply template for a category. Unknown
// categories fall back to the general template.
func Response(category Category) string {
	if response, ok := responses[category]; ok {
		return response
	}
	return responses[CategoryGeneral]
}
