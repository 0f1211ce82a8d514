// internal/crm/schema.go
package crm

// customersSchema is the JSON schema every customers.json must satisfy
// before the file directory accepts it.
const customersSchema = `{
	"type": "object",
	"required": ["customers"],
	"properties": {
		"customers": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["customerId", "name", "phone", "segment", "creditScore", "preApprovedLimit", "monthlySalary"],
				"properties": {
					"customerId": {"type": "string", "pattern": "^CUST[0-9]+$"},
					"name": {"type": "string", "minLength": 1},
					"phone": {"type": "string", "minLength": 10},
					"email": {"type": "string"},
					"city": {"type": "string"},
					"segment": {"type": "string", "enum": ["premium", "prime", "preferred", "standard"]},
					"creditScore": {"type": "integer", "minimum": 300, "maximum": 900},
					"preApprovedLimit": {"type": "number", "minimum": 0},
					"monthlySalary": {"type": "number", "minimum": 0},
					"kycComplete": {"type": "boolean"},
					"existingLoans": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["loanId", "monthlyEmi"],
							"properties": {
								"loanId": {"type": "string"},
								"type": {"type": "string"},
								"outstanding": {"type": "number", "minimum": 0},
								"monthlyEmi": {"type": "number", "minimum": 0}
							}
						}
					}
				}
			}
		}
	}
}`
