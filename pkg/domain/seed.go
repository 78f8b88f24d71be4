package domain

import "time"

// SeedAccount is a first-run account with a plaintext password that the
// store hashes before writing.
type SeedAccount struct {
	Username string
	Password string
	Role     Role
}

// SeedTransaction is a historical transaction inserted with the seed. ItemIndex
// points into SeedData.Items; DaysAgo shifts the timestamp back from now.
type SeedTransaction struct {
	ItemIndex int
	Quantity  int
	Amount    float64
	Kind      TransactionKind
	DaysAgo   int
}

// SeedData describes first-run provisioning.
type SeedData struct {
	Accounts     []SeedAccount
	Items        []Item
	Transactions []SeedTransaction
}

// OccurredAt returns the timestamp a seed transaction is recorded with.
func (t SeedTransaction) OccurredAt(now time.Time) time.Time {
	return now.AddDate(0, 0, -t.DaysAgo)
}

// DefaultSeed is the minimal dataset that makes a fresh install usable.
func DefaultSeed() SeedData {
	return SeedData{
		Accounts: defaultAccounts(),
		Items:    []Item{{Name: "Laptop", Quantity: 10, Price: 999.99}},
	}
}

// DemoSeed extends the default dataset with a grocery catalogue and sample
// sales and purchases.
func DemoSeed() SeedData {
	items := []Item{
		{Name: "Milk Carton", Quantity: 150, Price: 85.00},
		{Name: "Bread Loaf", Quantity: 200, Price: 50.00},
		{Name: "Eggs Dozen", Quantity: 100, Price: 120.00},
		{Name: "Coffee Jar", Quantity: 75, Price: 250.00},
		{Name: "Sugar Sack (kg)", Quantity: 40, Price: 75.00},
		{Name: "Bottled Water (L)", Quantity: 300, Price: 35.00},
		{Name: "Cooking Oil (L)", Quantity: 80, Price: 150.50},
		{Name: "Rice (kg)", Quantity: 50, Price: 60.00},
		{Name: "Potato Chips (Large)", Quantity: 90, Price: 88.75},
		{Name: "Shampoo Bottle", Quantity: 65, Price: 180.00},
		{Name: "All-Purpose Flour (kg)", Quantity: 120, Price: 95.00},
		{Name: "Baking Powder (small)", Quantity: 70, Price: 30.00},
		{Name: "Vanilla Extract (oz)", Quantity: 55, Price: 110.00},
		{Name: "Chocolate Chips (bag)", Quantity: 85, Price: 145.00},
		{Name: "Brown Sugar (box)", Quantity: 90, Price: 85.00},
		{Name: "Dry Yeast (packets)", Quantity: 150, Price: 20.00},
		{Name: "Dried Basil (jar)", Quantity: 45, Price: 75.00},
		{Name: "Ground Cinnamon (can)", Quantity: 60, Price: 92.50},
		{Name: "Dried Oregano (bag)", Quantity: 40, Price: 65.00},
		{Name: "Black Pepper Corns", Quantity: 50, Price: 130.00},
		{Name: "Paprika (can)", Quantity: 35, Price: 105.00},
		{Name: "Bay Leaves (bag)", Quantity: 30, Price: 55.00},
	}
	return SeedData{
		Accounts: defaultAccounts(),
		Items:    append([]Item{{Name: "Laptop", Quantity: 10, Price: 999.99}}, items...),
		Transactions: []SeedTransaction{
			{ItemIndex: 1, Quantity: 10, Amount: 850.00, Kind: KindSale},
			{ItemIndex: 2, Quantity: 25, Amount: 1250.00, Kind: KindSale},
			{ItemIndex: 1, Quantity: 5, Amount: 425.00, Kind: KindSale},
			{ItemIndex: 1, Quantity: 100, Amount: 5000.00, Kind: KindPurchase, DaysAgo: 7},
			{ItemIndex: 3, Quantity: 50, Amount: 4500.00, Kind: KindPurchase, DaysAgo: 7},
		},
	}
}

func defaultAccounts() []SeedAccount {
	return []SeedAccount{
		{Username: "admin", Password: "admin123", Role: RoleAdmin},
		{Username: "staff", Password: "staff123", Role: RoleStaff},
	}
}
