package email

const (
	subjectBookingConfirmation = "Your consultation is booked"
	subjectBookingCancelled    = "Your booking has been cancelled"
	subjectBookingRescheduled  = "Your booking has been rescheduled"
	subjectBookingReminder     = "Reminder: your consultation is coming up"
	subjectPaymentReceiptFmt   = "Payment received (%s)"
	subjectProposalFmt         = "Your care proposal: %s"
	subjectProposalAccepted    = "Welcome to LivingRite Care"
	subjectInvoiceOverdueFmt   = "Invoice %s is overdue"
)
