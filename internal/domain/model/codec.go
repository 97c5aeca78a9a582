package model

import (
	"github.com/okian/vendorhub/internal/storage/codec"
)

// Field numbers are part of the on-disk format. Never renumber.
const (
	vendorID        = 1
	vendorName      = 2
	vendorServices  = 3
	vendorContact   = 4
	vendorEmail     = 5
	vendorAddress   = 6
	vendorRatings   = 7
	vendorCreatedAt = 8

	serviceID          = 1
	serviceVendorID    = 2
	serviceName        = 3
	serviceDescription = 4
	servicePrice       = 5
	serviceAvailable   = 6

	contractID         = 1
	contractVendorID   = 2
	contractDepartment = 3
	contractStart      = 4
	contractEnd        = 5
	contractTerms      = 6
	contractActive     = 7

	feedbackID        = 1
	feedbackVendorID  = 2
	feedbackUserID    = 3
	feedbackRating    = 4
	feedbackComment   = 5
	feedbackTimestamp = 6
)

var (
	_ codec.Codec[Vendor]   = VendorCodec{}
	_ codec.Codec[Service]  = ServiceCodec{}
	_ codec.Codec[Contract] = ContractCodec{}
	_ codec.Codec[Feedback] = FeedbackCodec{}
)

// VendorCodec encodes Vendor records.
type VendorCodec struct{}

// Encode implements codec.Codec.
func (VendorCodec) Encode(v Vendor) ([]byte, error) {
	b := codec.NewBuilder()
	b.Fixed64(vendorID, v.ID)
	b.Text(vendorName, v.Name)
	b.Texts(vendorServices, v.Services)
	b.Text(vendorContact, v.Contact)
	b.Text(vendorEmail, v.Email)
	b.Text(vendorAddress, v.Address)
	b.Float32s(vendorRatings, v.Ratings)
	b.Fixed64(vendorCreatedAt, v.CreatedAt)
	return b.Bytes(), nil
}

// Decode implements codec.Codec. Services and Ratings are never nil.
func (VendorCodec) Decode(data []byte) (Vendor, error) {
	v := Vendor{Services: []string{}, Ratings: []float32{}}
	r := codec.NewReader(data)
	for r.Next() {
		switch r.Num() {
		case vendorID:
			v.ID = r.Fixed64()
		case vendorName:
			v.Name = r.Text()
		case vendorServices:
			v.Services = append(v.Services, r.Text())
		case vendorContact:
			v.Contact = r.Text()
		case vendorEmail:
			v.Email = r.Text()
		case vendorAddress:
			v.Address = r.Text()
		case vendorRatings:
			v.Ratings = r.Float32s(v.Ratings)
		case vendorCreatedAt:
			v.CreatedAt = r.Fixed64()
		default:
			r.Skip()
		}
	}
	return v, r.Err()
}

// ServiceCodec encodes Service records.
type ServiceCodec struct{}

// Encode implements codec.Codec.
func (ServiceCodec) Encode(s Service) ([]byte, error) {
	b := codec.NewBuilder()
	b.Fixed64(serviceID, s.ID)
	b.Fixed64(serviceVendorID, s.VendorID)
	b.Text(serviceName, s.Name)
	b.Text(serviceDescription, s.Description)
	b.Varint(servicePrice, s.Price)
	b.Bool(serviceAvailable, s.IsAvailable)
	return b.Bytes(), nil
}

// Decode implements codec.Codec.
func (ServiceCodec) Decode(data []byte) (Service, error) {
	var s Service
	r := codec.NewReader(data)
	for r.Next() {
		switch r.Num() {
		case serviceID:
			s.ID = r.Fixed64()
		case serviceVendorID:
			s.VendorID = r.Fixed64()
		case serviceName:
			s.Name = r.Text()
		case serviceDescription:
			s.Description = r.Text()
		case servicePrice:
			s.Price = r.Varint()
		case serviceAvailable:
			s.IsAvailable = r.Bool()
		default:
			r.Skip()
		}
	}
	return s, r.Err()
}

// ContractCodec encodes Contract records.
type ContractCodec struct{}

// Encode implements codec.Codec.
func (ContractCodec) Encode(c Contract) ([]byte, error) {
	b := codec.NewBuilder()
	b.Fixed64(contractID, c.ID)
	b.Fixed64(contractVendorID, c.VendorID)
	b.Fixed64(contractDepartment, c.DepartmentID)
	b.Fixed64(contractStart, c.StartDate)
	b.Fixed64(contractEnd, c.EndDate)
	b.Text(contractTerms, c.Terms)
	b.Bool(contractActive, c.IsActive)
	return b.Bytes(), nil
}

// Decode implements codec.Codec.
func (ContractCodec) Decode(data []byte) (Contract, error) {
	var c Contract
	r := codec.NewReader(data)
	for r.Next() {
		switch r.Num() {
		case contractID:
			c.ID = r.Fixed64()
		case contractVendorID:
			c.VendorID = r.Fixed64()
		case contractDepartment:
			c.DepartmentID = r.Fixed64()
		case contractStart:
			c.StartDate = r.Fixed64()
		case contractEnd:
			c.EndDate = r.Fixed64()
		case contractTerms:
			c.Terms = r.Text()
		case contractActive:
			c.IsActive = r.Bool()
		default:
			r.Skip()
		}
	}
	return c, r.Err()
}

// FeedbackCodec encodes Feedback records.
type FeedbackCodec struct{}

// Encode implements codec.Codec.
func (FeedbackCodec) Encode(f Feedback) ([]byte, error) {
	b := codec.NewBuilder()
	b.Fixed64(feedbackID, f.ID)
	b.Fixed64(feedbackVendorID, f.VendorID)
	b.Fixed64(feedbackUserID, f.UserID)
	b.Float32(feedbackRating, f.Rating)
	b.Text(feedbackComment, f.Comment)
	b.Fixed64(feedbackTimestamp, f.Timestamp)
	return b.Bytes(), nil
}

// Decode implements codec.Codec.
func (FeedbackCodec) Decode(data []byte) (Feedback, error) {
	var f Feedback
	r := codec.NewReader(data)
	for r.Next() {
		switch r.Num() {
		case feedbackID:
			f.ID = r.Fixed64()
		case feedbackVendorID:
			f.VendorID = r.Fixed64()
		case feedbackUserID:
			f.UserID = r.Fixed64()
		case feedbackRating:
			f.Rating = r.Float32()
		case feedbackComment:
			f.Comment = r.Text()
		case feedbackTimestamp:
			f.Timestamp = r.Fixed64()
		default:
			r.Skip()
		}
	}
	return f, r.Err()
}
