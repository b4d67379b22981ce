package services

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"incidentwatch/events"
	"incidentwatch/models"
	"incidentwatch/store"
	"incidentwatch/utils"
)

const notifyDispatchTimeout = 10 * time.Second

// NotificationConfig carries the external messaging credentials. Empty
// fields disable the corresponding channel and the dispatcher logs the
// notification instead of sending it.
type NotificationConfig struct {
	FirebaseCredentialsFile string
	TwilioAccountSID        string
	TwilioAuthToken         string
	TwilioFromNumber        string
}

// NotificationService fans verified critical incidents out to reporters who
// opted into nearby alerts: FCM push to registered device tokens and SMS to
// reporters with a phone number.
type NotificationService struct {
	reporters    *store.ReporterStore
	fcmClient    *messaging.Client
	twilioClient *twilio.RestClient
	twilioNumber string

	subscription events.Subscription
}

func NewNotificationService(reporters *store.ReporterStore, cfg NotificationConfig) *NotificationService {
	ns := &NotificationService{reporters: reporters}

	if cfg.FirebaseCredentialsFile != "" {
		app, err := firebase.NewApp(context.Background(), nil, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
		if err != nil {
			logrus.Warnf("Firebase init failed, push notifications disabled: %v", err)
		} else if client, err := app.Messaging(context.Background()); err != nil {
			logrus.Warnf("FCM client init failed, push notifications disabled: %v", err)
		} else {
			ns.fcmClient = client
		}
	} else {
		logrus.Info("No Firebase credentials configured, push notifications will be logged only")
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		ns.twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
		ns.twilioNumber = cfg.TwilioFromNumber
	} else {
		logrus.Info("No Twilio credentials configured, SMS notifications will be logged only")
	}

	return ns
}

// Subscribe attaches the dispatcher to the report_notification event.
func (ns *NotificationService) Subscribe(bus *events.Bus) {
	ns.subscription = bus.Subscribe(events.EventReportNotification, func(payload interface{}) {
		event, ok := payload.(events.NotificationEvent)
		if !ok || event.Report == nil {
			return
		}
		ns.Dispatch(event.Report, event.Reason)
	})
}

// Unsubscribe detaches the dispatcher from the bus.
func (ns *NotificationService) Unsubscribe(bus *events.Bus) {
	bus.Unsubscribe(ns.subscription)
}

// Dispatch notifies every opted-in reporter whose shared location lies
// inside the incident's impact area. The submitting reporter is skipped.
func (ns *NotificationService) Dispatch(report *models.IncidentReport, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyDispatchTimeout)
	defer cancel()

	title := fmt.Sprintf("%s incident nearby: %s", report.Severity, report.Title)
	body := fmt.Sprintf("A %s report near %s was verified by the community (%s).",
		report.Type, locationLabel(report), reason)

	var tokens []string
	var phones []string

	for _, profile := range ns.reporters.List() {
		if profile.ID == report.ReporterID {
			continue
		}
		if !profile.Preferences.NotifyNearbyReports || !profile.Preferences.ShareLocation || profile.Location == nil {
			continue
		}
		distance := distanceToReportMeters(profile.Location, report)
		if distance > report.ImpactArea.RadiusMeters {
			continue
		}
		tokens = append(tokens, profile.Preferences.PushTokens...)
		if profile.Phone != "" {
			phones = append(phones, profile.Phone)
		}
	}

	if len(tokens) == 0 && len(phones) == 0 {
		logrus.Debugf("No recipients within %.0fm of report %s", report.ImpactArea.RadiusMeters, report.ID)
		return
	}

	ns.sendPush(ctx, report, tokens, title, body)
	ns.sendSMS(phones, title, body)
}

func (ns *NotificationService) sendPush(ctx context.Context, report *models.IncidentReport, tokens []string, title, body string) {
	if len(tokens) == 0 {
		return
	}
	if ns.fcmClient == nil {
		logrus.Infof("[mock push] %d devices: %s", len(tokens), title)
		return
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"reportId": report.ID,
			"type":     string(report.Type),
			"severity": string(report.Severity),
		},
	}
	response, err := ns.fcmClient.SendEachForMulticast(ctx, message)
	if err != nil {
		logrus.Errorf("Push dispatch failed for report %s: %v", report.ID, err)
		return
	}
	logrus.Infof("Push dispatched for report %s: %d ok, %d failed", report.ID, response.SuccessCount, response.FailureCount)
}

func (ns *NotificationService) sendSMS(phones []string, title, body string) {
	if len(phones) == 0 {
		return
	}
	if ns.twilioClient == nil {
		logrus.Infof("[mock sms] %d recipients: %s", len(phones), title)
		return
	}

	text := title + "\n" + body
	for _, phone := range phones {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(phone)
		params.SetFrom(ns.twilioNumber)
		params.SetBody(text)

		if _, err := ns.twilioClient.Api.CreateMessage(params); err != nil {
			logrus.Errorf("SMS to %s failed: %v", phone, err)
		}
	}
}

func distanceToReportMeters(location *models.ReportLocation, report *models.IncidentReport) float64 {
	return utils.CalculateDistance(location.Latitude, location.Longitude,
		report.Location.Latitude, report.Location.Longitude)
}

func locationLabel(report *models.IncidentReport) string {
	if report.Location.Address != "" {
		return report.Location.Address
	}
	return fmt.Sprintf("%.4f, %.4f", report.Location.Latitude, report.Location.Longitude)
}
