package db

// ServiceType — вид услуги тендера
type ServiceType string

const (
	ServiceConstruction ServiceType = "Construction"
	ServiceDelivery     ServiceType = "Delivery"
	ServiceManufacture  ServiceType = "Manufacture"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceConstruction, ServiceDelivery, ServiceManufacture:
		return true
	}
	return false
}

// TenderStatus — статус тендера
type TenderStatus string

const (
	TenderCreated   TenderStatus = "Created"
	TenderPublished TenderStatus = "Published"
	TenderClosed    TenderStatus = "Closed"
)

func (s TenderStatus) Valid() bool {
	switch s {
	case TenderCreated, TenderPublished, TenderClosed:
		return true
	}
	return false
}

// BidStatus — статус предложения
type BidStatus string

const (
	BidCreated   BidStatus = "Created"
	BidPublished BidStatus = "Published"
	BidCanceled  BidStatus = "Canceled"
)

func (s BidStatus) Valid() bool {
	switch s {
	case BidCreated, BidPublished, BidCanceled:
		return true
	}
	return false
}

// AuthorType — тип автора предложения
type AuthorType string

const (
	AuthorOrganization AuthorType = "Organization"
	AuthorUser         AuthorType = "User"
)

func (a AuthorType) Valid() bool {
	return a == AuthorOrganization || a == AuthorUser
}

// DecisionType — решение ответственного по предложению
type DecisionType string

const (
	DecisionApproved DecisionType = "Approved"
	DecisionRejected DecisionType = "Rejected"
)

func (d DecisionType) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// OrganizationType — организационно-правовая форма
type OrganizationType string

const (
	OrganizationIE  OrganizationType = "IE"
	OrganizationLLC OrganizationType = "LLC"
	OrganizationJSC OrganizationType = "JSC"
)
