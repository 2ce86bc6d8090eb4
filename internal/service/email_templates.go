package service

import "html/template"

// Email bodies for claim notifications. One template per dispatchable status,
// plus a generic fallback for everything else.

var (
	approvalTemplate = template.Must(template.New("approval").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="background-color: #27ae60; color: white; padding: 16px;">Claim Approved for Payment</h2>
  <p>Your expense claim <strong>#{{.ClaimID}}</strong> has been approved and queued for payment.</p>
  <p><strong>Amount:</strong> {{.Amount}}</p>
  {{if .Notes}}<p><strong>Reviewer notes:</strong> {{.Notes}}</p>{{end}}
  <hr />
  <p>You will receive a further notification once the payment has been disbursed.</p>
  <p style="color: #999; font-size: 12px;">This is an automated email from EasyBills. Please do not reply.</p>
</div>`))

	rejectionTemplate = template.Must(template.New("rejection").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="background-color: #c0392b; color: white; padding: 16px;">Claim Rejected</h2>
  <p>Unfortunately your expense claim <strong>#{{.ClaimID}}</strong> has been rejected.</p>
  <div style="background-color: #fadbd8; border-left: 4px solid #c0392b; padding: 12px;">
    <strong>Reason:</strong> {{if .Notes}}{{.Notes}}{{else}}Please contact the Finance team for details.{{end}}
  </div>
  <hr />
  <p>If you believe this decision is incorrect, please contact the Finance team.</p>
  <p style="color: #999; font-size: 12px;">This is an automated email from EasyBills. Please do not reply.</p>
</div>`))

	clarificationTemplate = template.Must(template.New("clarification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="background-color: #e74c3c; color: white; padding: 16px;">Action Required: Clarification Needed</h2>
  <p>Your expense claim <strong>#{{.ClaimID}}</strong> requires additional information before it can be processed.</p>
  <div style="background-color: #fff3cd; border: 1px solid #ffc107; padding: 12px;">
    <strong>Please provide:</strong> {{if .Notes}}{{.Notes}}{{else}}Please contact the Finance team for details.{{end}}
  </div>
  <ol>
    <li>Log in to the EasyBills portal</li>
    <li>Open claim #{{.ClaimID}}</li>
    <li>Update it with the requested information and resubmit</li>
  </ol>
  <p><strong>Deadline:</strong> Please submit clarifications within 7 business days.</p>
  <p style="color: #999; font-size: 12px;">This is an automated email from EasyBills. Please do not reply.</p>
</div>`))

	paymentTemplate = template.Must(template.New("payment").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="background-color: #2ecc71; color: white; padding: 16px;">Payment Processed</h2>
  <p>The payment for your expense claim <strong>#{{.ClaimID}}</strong> has been disbursed.</p>
  <p><strong>Amount:</strong> {{.Amount}}</p>
  {{if .Notes}}<p><strong>Notes:</strong> {{.Notes}}</p>{{end}}
  <hr />
  <p>Please allow a few business days for the funds to appear in your account.</p>
  <p style="color: #999; font-size: 12px;">This is an automated email from EasyBills. Please do not reply.</p>
</div>`))

	genericTemplate = template.Must(template.New("generic").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="background-color: #3498db; color: white; padding: 16px;">Expense Claim Status Update</h2>
  <p><strong>Claim ID:</strong> #{{.ClaimID}}</p>
  <p><strong>New Status:</strong> {{.Status}}</p>
  <p><strong>Notes:</strong> {{if .Notes}}{{.Notes}}{{else}}No additional notes provided.{{end}}</p>
  <hr />
  <p>Please log in to the <strong>EasyBills portal</strong> to view full details of your claim.</p>
  <p style="color: #999; font-size: 12px;">This is an automated email from EasyBills. Please do not reply.</p>
</div>`))
)
